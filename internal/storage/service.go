package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dharsanguruparan/todys/internal/model"
	"github.com/dharsanguruparan/todys/internal/validation"
)

// Options tune Service.
type Options struct {
	// Bucket receives raw uploads.
	Bucket string
	// RecordTTL is how long a record lives before the expiry sweep removes it.
	RecordTTL time.Duration
	// Timeout bounds the backend calls of one Upload.
	Timeout time.Duration
}

// Service stores accepted documents and records their metadata.
type Service struct {
	objects ObjectStore
	records RecordStore
	locator *Locator
	opts    Options
	logger  log.Logger
	now     func() time.Time
}

// NewService wires a Service from its backends.
func NewService(objects ObjectStore, records RecordStore, locator *Locator, opts Options, logger log.Logger) *Service {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = 24 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Service{
		objects: objects,
		records: records,
		locator: locator,
		opts:    opts,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Upload writes doc under uploads/<id>/<name> and inserts its record with
// status uploaded. If the record cannot be written the object is removed
// again so no unreferenced bytes are left behind. Every error wraps
// ErrStorage.
func (s *Service) Upload(ctx context.Context, doc Document) (*Stored, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	ctx, span := otel.Tracer("todys/storage").Start(ctx, "storage.Upload")
	defer span.End()

	id := uuid.NewString()
	name := validation.BaseName(doc.Filename)
	key := fmt.Sprintf("uploads/%s/%s", id, name)
	span.SetAttributes(
		attribute.String("todys.record_id", id),
		attribute.Int("todys.size", len(doc.Data)),
	)

	if err := s.objects.Put(ctx, s.opts.Bucket, key, doc.Data, doc.MediaType); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put object")
		return nil, fmt.Errorf("%w: put object: %w", ErrStorage, err)
	}
	now := s.now()
	rec := &model.FileRecord{
		ID:          id,
		FileName:    name,
		FileType:    doc.DeclaredType,
		MediaType:   doc.MediaType,
		Size:        int64(len(doc.Data)),
		StoragePath: key,
		Status:      model.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.opts.RecordTTL),
	}
	if err := s.records.Create(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create record")
		// The request context may be the reason Create failed; clean up on a
		// fresh one.
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), s.opts.Timeout)
		defer cleanupCancel()
		if rmErr := s.objects.Remove(cleanupCtx, s.opts.Bucket, key); rmErr != nil {
			level.Warn(s.logger).Log("method", "Upload", "msg", "orphaned object", "key", key, "err", rmErr)
		}
		return nil, fmt.Errorf("%w: create record: %w", ErrStorage, err)
	}
	return &Stored{ID: id, ObjectKey: key, URL: s.locator.URL(id, key)}, nil
}

// Record returns the metadata row for id.
func (s *Service) Record(ctx context.Context, id string) (*model.FileRecord, error) {
	return s.records.Get(ctx, id)
}

// Open returns the raw bytes stored for rec.
func (s *Service) Open(ctx context.Context, rec *model.FileRecord) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	return s.objects.Get(ctx, s.opts.Bucket, rec.StoragePath)
}
