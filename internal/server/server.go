// Package server exposes the upload API over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dharsanguruparan/todys/internal/config"
	"github.com/dharsanguruparan/todys/internal/model"
	"github.com/dharsanguruparan/todys/internal/signing"
	"github.com/dharsanguruparan/todys/internal/storage"
)

// HealthCheck is one dependency checked by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators a Server routes to.
type Deps struct {
	Config   *config.Config
	Files    *storage.Service
	Locator  *storage.Locator
	Upload   http.Handler
	Signer   *signing.Signer
	Gatherer prometheus.Gatherer
	Health   []HealthCheck
	Logger   log.Logger
}

// Server hosts the HTTP handlers.
type Server struct {
	deps Deps
	now  func() time.Time
}

// New creates a configured server.
func New(deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{deps: deps, now: time.Now}
}

// Serve runs the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.deps.Config.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()
	level.Info(s.deps.Logger).Log("msg", "listening", "addr", s.deps.Config.Address,
		"max_upload_size", s.deps.Config.MaxUploadSize, "rate_limit", s.deps.Config.RateLimitPerMinute)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(tracing)
	r.Use(requestLogger(s.deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.deps.Config.CORSOrigins))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/upload", s.deps.Upload)
		r.Get("/files/{id}", s.handleFileInfo)
		r.Get("/files/{id}/download", s.handleDownload)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for _, hc := range s.deps.Health {
		if err := hc.Check(ctx); err != nil {
			status[hc.Name] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[hc.Name] = "ok"
	}
	respondJSON(w, s.deps.Logger, code, status)
}

// fileView is a record plus a fresh link to its bytes.
type fileView struct {
	*model.FileRecord
	DownloadURL string `json:"downloadUrl"`
}

func (s *Server) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	record, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, s.deps.Logger, http.StatusOK, fileView{
		FileRecord:  record,
		DownloadURL: s.deps.Locator.URL(record.ID, record.StoragePath),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Signer.Verify(id, r.URL.Query(), s.now()); err != nil {
		switch {
		case errors.Is(err, signing.ErrMissingParams):
			errorJSON(w, s.deps.Logger, http.StatusBadRequest, err.Error())
		default:
			errorJSON(w, s.deps.Logger, http.StatusUnauthorized, err.Error())
		}
		return
	}
	record, ok := s.lookup(w, r)
	if !ok {
		return
	}
	data, err := s.deps.Files.Open(r.Context(), record)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			errorJSON(w, s.deps.Logger, http.StatusNotFound, "file not found")
			return
		}
		level.Error(s.deps.Logger).Log("method", "handleDownload", "record", id, "err", err)
		errorJSON(w, s.deps.Logger, http.StatusInternalServerError, "file unavailable")
		return
	}
	w.Header().Set("Content-Type", record.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": record.FileName}))
	http.ServeContent(w, r, record.FileName, record.UpdatedAt, bytes.NewReader(data))
}

// lookup resolves the {id} route parameter, answering 404 for unknown ids
// and 410 for records past their expiry.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.FileRecord, bool) {
	id := chi.URLParam(r, "id")
	record, err := s.deps.Files.Record(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			errorJSON(w, s.deps.Logger, http.StatusNotFound, "file not found")
			return nil, false
		}
		level.Error(s.deps.Logger).Log("method", "lookup", "record", id, "err", err)
		errorJSON(w, s.deps.Logger, http.StatusInternalServerError, "failed to load file record")
		return nil, false
	}
	if record.Expired(s.now()) {
		errorJSON(w, s.deps.Logger, http.StatusGone, "file expired")
		return nil, false
	}
	return record, true
}

func errorJSON(w http.ResponseWriter, logger log.Logger, status int, detail string) {
	respondJSON(w, logger, status, map[string]string{"detail": detail})
}

func respondJSON(w http.ResponseWriter, logger log.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		level.Warn(logger).Log("method", "respondJSON", "err", err)
	}
}
