package s3storage

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/minio/minio-go/v7"

	"github.com/dharsanguruparan/todys/internal/storage"
)

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		endpoint string
		ssl      bool
		want     string
	}{
		{"", true, ""},
		{"localhost:9000", false, "http://localhost:9000"},
		{"minio.internal:9000", true, "https://minio.internal:9000"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tc := range cases {
		if got := endpointURL(tc.endpoint, tc.ssl); got != tc.want {
			t.Fatalf("endpointURL(%q, %v) = %q, want %q", tc.endpoint, tc.ssl, got, tc.want)
		}
	}
}

func TestMapS3Error(t *testing.T) {
	if err := mapS3Error("b", "k", &types.NoSuchKey{}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mapS3Error("b", "k", errors.New("throttled")); errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unexpected ErrNotFound for %v", err)
	}
}

func TestMapMinioError(t *testing.T) {
	missing := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	if err := mapMinioError("b", "k", missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	denied := minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
	if err := mapMinioError("b", "k", denied); errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unexpected ErrNotFound for %v", err)
	}
}
