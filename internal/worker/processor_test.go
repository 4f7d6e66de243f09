package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dharsanguruparan/todys/internal/metrics"
	"github.com/dharsanguruparan/todys/internal/model"
	"github.com/dharsanguruparan/todys/internal/queue"
	"github.com/dharsanguruparan/todys/internal/storage"
)

var testBuckets = Buckets{Raw: "temp-files", Processed: "transformed-files"}

func setup(t *testing.T, id, key, mediaType string, data []byte) (*Processor, *storage.MemoryObjects, *storage.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	objects, records := storage.NewMemoryObjects(), storage.NewMemoryStore()
	if err := objects.Put(ctx, testBuckets.Raw, key, data, mediaType); err != nil {
		t.Fatalf("put: %v", err)
	}
	rec := &model.FileRecord{ID: id, StoragePath: key, MediaType: mediaType, ExpiresAt: time.Now().Add(time.Hour)}
	if err := records.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}
	p := NewProcessor(objects, records, testBuckets, metrics.New(prometheus.NewRegistry()), log.NewNopLogger())
	return p, objects, records
}

func TestTransformPlainText(t *testing.T) {
	ctx := context.Background()
	p, objects, records := setup(t, "r1", "uploads/r1/notes.txt", "text/plain", []byte("hello"))

	err := p.Transform(ctx, queue.TransformPayload{RecordID: "r1", ObjectKey: "uploads/r1/notes.txt", MediaType: "text/plain"})
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	out, err := objects.Get(ctx, testBuckets.Processed, "uploads/r1/notes.txt")
	if err != nil || string(out) != "hello" {
		t.Fatalf("processed object: %q %v", out, err)
	}
	rec, _ := records.Get(ctx, "r1")
	if rec.Status != model.StatusProcessed || rec.TransformedPath == nil || *rec.TransformedPath != "uploads/r1/notes.txt" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestTransformUnsupportedMarksFailed(t *testing.T) {
	ctx := context.Background()
	p, _, records := setup(t, "r2", "uploads/r2/a.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("PK"))

	task, _ := queue.NewTransformTask(queue.TransformPayload{RecordID: "r2", ObjectKey: "uploads/r2/a.docx", MediaType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"})
	err := p.handleTransform(ctx, task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	rec, _ := records.Get(ctx, "r2")
	if rec.Status != model.StatusFailed || rec.ErrorMessage == nil {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestTransformMissingRecordIsSkipped(t *testing.T) {
	p, _, _ := setup(t, "r3", "uploads/r3/a.txt", "text/plain", []byte("x"))
	if err := p.Transform(context.Background(), queue.TransformPayload{RecordID: "gone", ObjectKey: "k"}); err != nil {
		t.Fatalf("expected nil for a swept record, got %v", err)
	}
}

func TestHandleTransformBadPayload(t *testing.T) {
	p, _, _ := setup(t, "r4", "uploads/r4/a.txt", "text/plain", []byte("x"))
	err := p.handleTransform(context.Background(), asynq.NewTask(queue.TransformDocumentTask, []byte("nope")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestExpireRemovesRecordsAndObjects(t *testing.T) {
	ctx := context.Background()
	p, objects, records := setup(t, "live", "uploads/live/a.txt", "text/plain", []byte("x"))
	if err := objects.Put(ctx, testBuckets.Raw, "uploads/old/a.txt", []byte("y"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	if err := objects.Put(ctx, testBuckets.Processed, "uploads/old/a.txt", []byte("y"), "text/plain"); err != nil {
		t.Fatal(err)
	}
	old := &model.FileRecord{ID: "old", StoragePath: "uploads/old/a.txt", ExpiresAt: time.Now().Add(-time.Minute)}
	if err := records.Create(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := records.MarkProcessed(ctx, "old", "uploads/old/a.txt"); err != nil {
		t.Fatal(err)
	}

	removed, err := p.Expire(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("expire: removed=%d err=%v", removed, err)
	}
	if _, err := records.Get(ctx, "old"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expired record still present: %v", err)
	}
	for _, bucket := range []string{testBuckets.Raw, testBuckets.Processed} {
		if _, err := objects.Get(ctx, bucket, "uploads/old/a.txt"); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("object left in %s: %v", bucket, err)
		}
	}
	if _, err := records.Get(ctx, "live"); err != nil {
		t.Fatalf("live record removed: %v", err)
	}
}

func TestProcessedObjectKey(t *testing.T) {
	cases := map[string]string{
		"uploads/a/report.pdf":     "uploads/a/report.txt",
		"uploads/a/archive.v2.pdf": "uploads/a/archive.v2.txt",
		"uploads/a/notes.txt":      "uploads/a/notes.txt",
	}
	for in, want := range cases {
		if got := ProcessedObjectKey(in); got != want {
			t.Fatalf("ProcessedObjectKey(%q) = %q, want %q", in, got, want)
		}
	}
}
