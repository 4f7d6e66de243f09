package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/todys/internal/config"
	"github.com/dharsanguruparan/todys/internal/storage"
)

// Minio stores upload and transformed artifacts in MinIO or any S3
// compatible endpoint reachable through minio-go.
type Minio struct {
	client  *minio.Client
	buckets []string
	region  string
}

// NewMinio creates a MinIO client from the Config.
func NewMinio(cfg *config.Config) (*Minio, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Minio{
		client:  client,
		buckets: []string{cfg.RawBucket, cfg.ProcessedBucket},
		region:  cfg.S3Region,
	}, nil
}

// EnsureBuckets makes sure the upload and processed buckets exist before use.
func (s *Minio) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range s.buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

func (s *Minio) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Minio) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(bucket, key, err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinioError(bucket, key, err)
	}
	return buf, nil
}

func (s *Minio) Remove(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return mapMinioError(bucket, key, err)
	}
	return nil
}

// GetObject is lazy, so a missing key usually surfaces on the first read.
func mapMinioError(bucket, key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("object %s/%s: %w", bucket, key, storage.ErrNotFound)
	}
	return fmt.Errorf("object %s/%s: %w", bucket, key, err)
}

var _ storage.ObjectStore = (*Minio)(nil)
