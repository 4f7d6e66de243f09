// Package processing runs document transformations on an in-process
// goroutine pool. It stands in for the Redis queue when the service runs
// with the memory storage backend.
package processing

import (
	"context"
	"errors"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/dharsanguruparan/todys/internal/queue"
	"github.com/dharsanguruparan/todys/internal/storage"
)

// ErrQueueFull is returned by EnqueueTransform when every slot is taken.
var ErrQueueFull = errors.New("processing queue full")

// Transformer performs one transformation job.
type Transformer interface {
	Transform(ctx context.Context, payload queue.TransformPayload) error
}

// Pool consumes transform jobs on a fixed number of goroutines.
type Pool struct {
	runner  Transformer
	records storage.RecordStore
	logger  log.Logger
	jobs    chan queue.TransformPayload
	workers int
	wg      sync.WaitGroup
}

// New builds a Pool with queue capacity tied to worker count.
func New(runner Transformer, records storage.RecordStore, workers int, logger log.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		runner:  runner,
		records: records,
		logger:  logger,
		jobs:    make(chan queue.TransformPayload, workers*4),
		workers: workers,
	}
}

// Start launches the workers. They exit when ctx is cancelled; Wait blocks
// until they have.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Wait blocks until every worker started by Start has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// EnqueueTransform queues a job without blocking. A full queue marks the
// record failed so its status reflects the dropped job.
func (p *Pool) EnqueueTransform(ctx context.Context, payload queue.TransformPayload) error {
	select {
	case p.jobs <- payload:
		return nil
	default:
		level.Warn(p.logger).Log("method", "EnqueueTransform", "record", payload.RecordID, "msg", "queue full, dropping job")
		if err := p.records.MarkFailed(ctx, payload.RecordID, ErrQueueFull.Error()); err != nil {
			level.Error(p.logger).Log("method", "EnqueueTransform", "record", payload.RecordID, "err", err)
		}
		return ErrQueueFull
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			// Transform records its own failures on the record.
			_ = p.runner.Transform(ctx, job)
		}
	}
}

var _ queue.Enqueuer = (*Pool)(nil)
