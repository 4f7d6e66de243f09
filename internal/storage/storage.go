// Package storage persists accepted uploads: bytes go to an object store and
// a metadata row goes to a record store.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dharsanguruparan/todys/internal/model"
)

var (
	// ErrNotFound is returned when an object or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorage wraps every backend failure surfaced by Service.Upload so
	// callers can tell it apart from a validation rejection.
	ErrStorage = errors.New("storage backend failure")
)

// ObjectStore holds raw and transformed file bytes.
type ObjectStore interface {
	EnsureBuckets(ctx context.Context) error
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Remove(ctx context.Context, bucket, key string) error
}

// RecordStore holds one metadata row per stored upload.
type RecordStore interface {
	Create(ctx context.Context, rec *model.FileRecord) error
	Get(ctx context.Context, id string) (*model.FileRecord, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkProcessed(ctx context.Context, id, transformedPath string) error
	MarkFailed(ctx context.Context, id, msg string) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.FileRecord, error)
	Delete(ctx context.Context, id string) error
}

// Document is an accepted upload ready to be stored.
type Document struct {
	Filename string
	// DeclaredType is the content type the client sent.
	DeclaredType string
	// MediaType is the type the validator detected.
	MediaType string
	Data      []byte
}

// Stored identifies a persisted upload.
type Stored struct {
	ID        string
	ObjectKey string
	URL       string
}

// Uploader persists accepted documents.
type Uploader interface {
	Upload(ctx context.Context, doc Document) (*Stored, error)
}
