package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-kit/log"

	"github.com/dharsanguruparan/todys/internal/config"
	"github.com/dharsanguruparan/todys/internal/metrics"
	"github.com/dharsanguruparan/todys/internal/validation"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StorageBackend:    config.BackendMemory,
		MaxUploadSize:     1 << 20,
		AllowedExtensions: []string{"pdf", "txt"},
		RawBucket:         "temp-files",
		ProcessedBucket:   "transformed-files",
		ProcessingPool:    1,
	}
}

func TestOpenBackendsMemory(t *testing.T) {
	b, err := OpenBackends(context.Background(), memoryConfig())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer b.Close()
	if !b.Memory() || b.Objects == nil || b.Records == nil {
		t.Fatalf("unexpected backends %+v", b)
	}
	if err := b.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNewValidatorHonoursExtensions(t *testing.T) {
	v := NewValidator(memoryConfig())
	if v.MaxSize() != 1<<20 {
		t.Fatalf("max size %d", v.MaxSize())
	}
	if !v.AllowList().Allowed(validation.MediaTypePDF) || v.AllowList().Allowed(validation.MediaTypeDocx) {
		t.Fatalf("unexpected allow-list %v", v.AllowList())
	}
}

func TestRunWorkerRefusesMemoryBackend(t *testing.T) {
	if err := RunWorker(context.Background(), memoryConfig(), log.NewNopLogger()); err == nil {
		t.Fatal("expected error for memory backend")
	}
}

func TestExpireMemory(t *testing.T) {
	n, err := Expire(context.Background(), memoryConfig(), log.NewNopLogger())
	if err != nil || n != 0 {
		t.Fatalf("expire: %d %v", n, err)
	}
}

func TestWorkerMetricsServerExposesTransforms(t *testing.T) {
	registry := newRegistry()
	metrics.New(registry).Transformed(metrics.TransformOK)
	srv := metricsServer(":0", registry)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "todys_transform_total") || !strings.Contains(body, "go_goroutines") {
		t.Fatalf("worker metrics missing from output:\n%s", body)
	}
}
