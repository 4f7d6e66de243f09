// Package app assembles the API and the worker from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dharsanguruparan/todys/internal/config"
	"github.com/dharsanguruparan/todys/internal/database"
	"github.com/dharsanguruparan/todys/internal/logging"
	"github.com/dharsanguruparan/todys/internal/metrics"
	"github.com/dharsanguruparan/todys/internal/processing"
	"github.com/dharsanguruparan/todys/internal/queue"
	"github.com/dharsanguruparan/todys/internal/repository"
	"github.com/dharsanguruparan/todys/internal/s3storage"
	"github.com/dharsanguruparan/todys/internal/server"
	"github.com/dharsanguruparan/todys/internal/signing"
	"github.com/dharsanguruparan/todys/internal/storage"
	"github.com/dharsanguruparan/todys/internal/tracing"
	"github.com/dharsanguruparan/todys/internal/upload"
	"github.com/dharsanguruparan/todys/internal/validation"
	"github.com/dharsanguruparan/todys/internal/worker"
)

// memorySweepInterval paces the expiry sweep when no scheduler runs.
const memorySweepInterval = time.Hour

const shutdownTimeout = 10 * time.Second

// Backends are the object and record stores selected by STORAGE_BACKEND.
type Backends struct {
	Objects storage.ObjectStore
	Records storage.RecordStore
	pool    *pgxpool.Pool
}

// Close releases the database pool, if any.
func (b *Backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

// Ping checks the database when one is configured.
func (b *Backends) Ping(ctx context.Context) error {
	if b.pool == nil {
		return nil
	}
	return b.pool.Ping(ctx)
}

// Memory reports whether everything lives in process memory.
func (b *Backends) Memory() bool {
	return b.pool == nil
}

// OpenBackends connects the configured stores, creating buckets and the
// schema when missing.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	if cfg.StorageBackend == config.BackendMemory {
		return &Backends{Objects: storage.NewMemoryObjects(), Records: storage.NewMemoryStore()}, nil
	}
	var (
		objects storage.ObjectStore
		err     error
	)
	switch cfg.StorageBackend {
	case config.BackendS3:
		objects, err = s3storage.NewS3(ctx, cfg)
	default:
		objects, err = s3storage.NewMinio(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if err := objects.EnsureBuckets(ctx); err != nil {
		return nil, fmt.Errorf("ensure buckets: %w", err)
	}
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Backends{
		Objects: objects,
		Records: repository.NewFileRepository(pool),
		pool:    pool,
	}, nil
}

// NewValidator builds the validator from the size limit and the allowed
// extensions.
func NewValidator(cfg *config.Config) *validation.Validator {
	return validation.New(cfg.MaxUploadSize, validation.DefaultAllowList.Restrict(cfg.AllowedExtensions))
}

// RunAPI serves HTTP until ctx is cancelled. With the memory backend the
// transformation and expiry work runs in process; otherwise it is queued
// for the worker.
func RunAPI(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer flushTraces(shutdownTracing, logger)

	backends, err := OpenBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	registry := newRegistry()
	m := metrics.New(registry)

	signer := signing.NewSigner(cfg.SigningSecret)
	locator := storage.NewLocator(cfg.PublicBaseURL, cfg.RawBucket, signer, cfg.SignedURLTTL)
	files := storage.NewService(backends.Objects, backends.Records, locator, storage.Options{
		Bucket:    cfg.RawBucket,
		RecordTTL: cfg.RecordTTL,
		Timeout:   cfg.StorageTimeout,
	}, logging.Component(logger, "storage"))

	var (
		health   []server.HealthCheck
		enqueuer queue.Enqueuer
	)
	if backends.Memory() {
		workCtx, cancel := context.WithCancel(ctx)
		processor := newProcessor(cfg, backends, m, logger)
		pool := processing.New(processor, backends.Records, cfg.ProcessingPool, logging.Component(logger, "processing"))
		pool.Start(workCtx)
		defer pool.Wait()
		defer cancel()
		go sweep(workCtx, processor, logger)
		enqueuer = pool
	} else {
		health = append(health, server.HealthCheck{Name: "database", Check: backends.Ping})
		client := asynq.NewClient(worker.RedisOpt(cfg))
		defer client.Close()
		enqueuer = queue.NewTaskQueue(client)
	}

	handler := upload.NewHandler(NewValidator(cfg), files, enqueuer, m, logging.Component(logger, "upload"))
	srv := server.New(server.Deps{
		Config:   cfg,
		Files:    files,
		Locator:  locator,
		Upload:   handler,
		Signer:   signer,
		Gatherer: registry,
		Health:   health,
		Logger:   logging.Component(logger, "http"),
	})
	return srv.Serve(ctx)
}

// RunWorker consumes transform jobs and schedules the expiry sweep until ctx
// is cancelled.
func RunWorker(ctx context.Context, cfg *config.Config, logger log.Logger) error {
	if cfg.StorageBackend == config.BackendMemory {
		return fmt.Errorf("worker needs a shared backend; STORAGE_BACKEND=memory runs jobs inside the API")
	}
	shutdownTracing, err := tracing.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer flushTraces(shutdownTracing, logger)

	backends, err := OpenBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	registry := newRegistry()
	metricsSrv := metricsServer(cfg.WorkerMetricsAddress, registry)
	go func() {
		level.Info(logger).Log("msg", "worker metrics listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("method", "metricsServer", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		metricsSrv.Shutdown(shutdownCtx)
	}()

	processor := newProcessor(cfg, backends, metrics.New(registry), logger)
	srv := worker.NewServer(cfg, logging.Component(logger, "asynq"))
	if err := srv.Start(processor.Handler()); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer srv.Shutdown()

	scheduler, err := worker.NewScheduler(cfg, logging.Component(logger, "scheduler"))
	if err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	level.Info(logger).Log("msg", "worker running", "concurrency", cfg.ProcessingPool, "expire_schedule", cfg.ExpireSchedule)
	<-ctx.Done()
	return nil
}

// Expire runs one expiry sweep against the configured backends.
func Expire(ctx context.Context, cfg *config.Config, logger log.Logger) (int, error) {
	backends, err := OpenBackends(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer backends.Close()
	return newProcessor(cfg, backends, nil, logger).Expire(ctx)
}

func newProcessor(cfg *config.Config, b *Backends, m *metrics.Metrics, logger log.Logger) *worker.Processor {
	return worker.NewProcessor(b.Objects, b.Records, worker.Buckets{
		Raw:       cfg.RawBucket,
		Processed: cfg.ProcessedBucket,
	}, m, logging.Component(logger, "worker"))
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry
}

// metricsServer serves the worker's registry on /metrics.
func metricsServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func flushTraces(shutdown tracing.Shutdown, logger log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		level.Warn(logger).Log("msg", "flush traces", "err", err)
	}
}

func sweep(ctx context.Context, p *worker.Processor, logger log.Logger) {
	ticker := time.NewTicker(memorySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.Expire(ctx); err != nil {
				level.Error(logger).Log("method", "sweep", "err", err)
			}
		}
	}
}
