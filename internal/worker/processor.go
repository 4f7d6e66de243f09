package worker

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dharsanguruparan/todys/internal/extract"
	"github.com/dharsanguruparan/todys/internal/metrics"
	"github.com/dharsanguruparan/todys/internal/queue"
	"github.com/dharsanguruparan/todys/internal/storage"
)

// expireBatch bounds how many records one ListExpired call returns.
const expireBatch = 100

// Buckets names where raw uploads live and where text output goes.
type Buckets struct {
	Raw       string
	Processed string
}

// Processor transforms stored uploads and sweeps expired ones. It is plugged
// into the asynq worker loop and into the in-process pool.
type Processor struct {
	objects storage.ObjectStore
	records storage.RecordStore
	buckets Buckets
	metrics *metrics.Metrics
	logger  log.Logger
	now     func() time.Time
}

// NewProcessor constructs a worker processor.
func NewProcessor(objects storage.ObjectStore, records storage.RecordStore, buckets Buckets, m *metrics.Metrics, logger log.Logger) *Processor {
	return &Processor{
		objects: objects,
		records: records,
		buckets: buckets,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handler registers the transform and expire handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TransformDocumentTask, p.handleTransform)
	mux.HandleFunc(queue.ExpireRecordsTask, p.handleExpire)
	return mux
}

func (p *Processor) handleTransform(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeTransform(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := p.Transform(ctx, payload); err != nil {
		if permanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}
	return nil
}

func (p *Processor) handleExpire(ctx context.Context, _ *asynq.Task) error {
	_, err := p.Expire(ctx)
	return err
}

// Transform extracts the text of the uploaded object into the processed
// bucket and moves the record to processed. Any failure marks the record
// failed before the error is returned.
func (p *Processor) Transform(ctx context.Context, payload queue.TransformPayload) error {
	ctx, span := otel.Tracer("todys/worker").Start(ctx, "worker.Transform")
	defer span.End()
	span.SetAttributes(
		attribute.String("record.id", payload.RecordID),
		attribute.String("media_type", payload.MediaType),
	)
	failure := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		level.Error(p.logger).Log("method", "Transform", "record", payload.RecordID, "err", err)
		if markErr := p.records.MarkFailed(ctx, payload.RecordID, err.Error()); markErr != nil {
			level.Warn(p.logger).Log("method", "Transform", "record", payload.RecordID, "msg", "mark failed", "err", markErr)
		}
		p.metrics.Transformed(metrics.TransformFailed)
		return err
	}
	if err := p.records.MarkProcessing(ctx, payload.RecordID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Expired and swept before the job ran.
			level.Info(p.logger).Log("method", "Transform", "record", payload.RecordID, "msg", "record gone, skipping")
			return nil
		}
		return failure(err)
	}
	data, err := p.objects.Get(ctx, p.buckets.Raw, payload.ObjectKey)
	if err != nil {
		return failure(err)
	}
	text, err := extract.Text(payload.MediaType, data)
	if err != nil {
		return failure(err)
	}
	processedKey := ProcessedObjectKey(payload.ObjectKey)
	if err := p.objects.Put(ctx, p.buckets.Processed, processedKey, []byte(text), "text/plain; charset=utf-8"); err != nil {
		return failure(err)
	}
	if err := p.records.MarkProcessed(ctx, payload.RecordID, processedKey); err != nil {
		return failure(err)
	}
	p.metrics.Transformed(metrics.TransformOK)
	level.Info(p.logger).Log("method", "Transform", "record", payload.RecordID, "bytes", len(text))
	return nil
}

// Expire deletes records past their expiry together with their objects and
// returns how many were removed.
func (p *Processor) Expire(ctx context.Context) (int, error) {
	removed := 0
	for {
		batch, err := p.records.ListExpired(ctx, p.now(), expireBatch)
		if err != nil {
			return removed, fmt.Errorf("list expired: %w", err)
		}
		for _, rec := range batch {
			if err := p.removeObject(ctx, p.buckets.Raw, rec.StoragePath); err != nil {
				return removed, err
			}
			if rec.TransformedPath != nil {
				if err := p.removeObject(ctx, p.buckets.Processed, *rec.TransformedPath); err != nil {
					return removed, err
				}
			}
			if err := p.records.Delete(ctx, rec.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return removed, fmt.Errorf("delete record %s: %w", rec.ID, err)
			}
			removed++
		}
		if len(batch) < expireBatch {
			break
		}
	}
	if removed > 0 {
		level.Info(p.logger).Log("method", "Expire", "removed", removed)
	}
	return removed, nil
}

func (p *Processor) removeObject(ctx context.Context, bucket, key string) error {
	if key == "" {
		return nil
	}
	if err := p.objects.Remove(ctx, bucket, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
	}
	return nil
}

// ProcessedObjectKey maps uploads/<id>/report.pdf to uploads/<id>/report.txt.
func ProcessedObjectKey(objectKey string) string {
	return strings.TrimSuffix(objectKey, path.Ext(objectKey)) + ".txt"
}

// permanent reports errors that a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, extract.ErrUnsupported) || errors.Is(err, storage.ErrNotFound)
}
