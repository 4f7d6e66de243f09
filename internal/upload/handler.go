package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dharsanguruparan/todys/internal/metrics"
	"github.com/dharsanguruparan/todys/internal/queue"
	"github.com/dharsanguruparan/todys/internal/storage"
	"github.com/dharsanguruparan/todys/internal/validation"
)

// FormField is the multipart field carrying the file.
const FormField = "file"

// multipartSlack covers boundaries and part headers around the file bytes.
const multipartSlack = 1 << 20

// Handler validates, stores and enqueues one upload per request.
type Handler struct {
	validator *validation.Validator
	uploader  storage.Uploader
	enqueuer  queue.Enqueuer
	metrics   *metrics.Metrics
	logger    log.Logger
}

// NewHandler wires a Handler. enqueuer may be nil, in which case stored
// uploads are not handed to the processing stage.
func NewHandler(v *validation.Validator, uploader storage.Uploader, enqueuer queue.Enqueuer, m *metrics.Metrics, logger log.Logger) *Handler {
	return &Handler{
		validator: v,
		uploader:  uploader,
		enqueuer:  enqueuer,
		metrics:   m,
		logger:    logger,
	}
}

// ServeHTTP reads the first "file" part of a multipart body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.validator.MaxSize()+multipartSlack)
	mr, err := r.MultipartReader()
	if err != nil {
		level.Info(h.logger).Log("method", "ServeHTTP", "msg", "not a multipart body", "err", err)
		respondJSON(w, h.logger, http.StatusBadRequest, Malformed(err))
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.reject(w, validation.Reject(validation.ReasonOversized))
		case errors.Is(err, io.EOF):
			h.reject(w, validation.Reject(validation.ReasonMissingFilename))
		default:
			h.fail(w, fmt.Errorf("%w: %w", validation.ErrRead, err))
		}
		return
	}
	defer part.Close()
	status, resp := h.Process(r.Context(), part, part.FileName(), part.Header.Get("Content-Type"))
	respondJSON(w, h.logger, status, resp)
}

// Process validates r, stores it when accepted and queues the
// transformation. It returns the HTTP status and body to send.
func (h *Handler) Process(ctx context.Context, r io.Reader, filename, contentType string) (int, Response) {
	ctx, span := otel.Tracer("todys/upload").Start(ctx, "upload.Process")
	defer span.End()

	candidate, verdict, err := h.validator.ValidateReader(r, filename, contentType)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			verdict = validation.Reject(validation.ReasonOversized)
		} else {
			h.metrics.Failed()
			level.Error(h.logger).Log("method", "Process", "filename", filename, "err", err)
			return http.StatusInternalServerError, Failed(err)
		}
	}
	span.SetAttributes(attribute.String("todys.verdict", verdict.String()))
	if !verdict.Accepted() {
		h.metrics.Rejected(string(verdict.Reason()))
		level.Info(h.logger).Log("method", "Process", "filename", filename, "reason", verdict.Reason())
		return StatusFor(verdict), Rejected(verdict)
	}

	stored, err := h.uploader.Upload(ctx, storage.Document{
		Filename:     candidate.Filename,
		DeclaredType: candidate.ContentType,
		MediaType:    verdict.MediaType(),
		Data:         candidate.Data,
	})
	if err != nil {
		h.metrics.Failed()
		level.Error(h.logger).Log("method", "Process", "filename", filename, "err", err)
		return http.StatusInternalServerError, Failed(err)
	}

	if h.enqueuer != nil {
		payload := queue.TransformPayload{
			RecordID:  stored.ID,
			ObjectKey: stored.ObjectKey,
			MediaType: verdict.MediaType(),
			FileName:  validation.BaseName(filename),
		}
		if err := h.enqueuer.EnqueueTransform(ctx, payload); err != nil {
			level.Warn(h.logger).Log("method", "Process", "record", stored.ID, "msg", "enqueue transform", "err", err)
		}
	}
	h.metrics.Accepted(len(candidate.Data))
	level.Info(h.logger).Log("method", "Process", "record", stored.ID, "media_type", verdict.MediaType(), "size", len(candidate.Data))
	return http.StatusOK, Accepted(stored, validation.BaseName(filename), verdict.MediaType())
}

func (h *Handler) reject(w http.ResponseWriter, v validation.Verdict) {
	h.metrics.Rejected(string(v.Reason()))
	respondJSON(w, h.logger, StatusFor(v), Rejected(v))
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.metrics.Failed()
	level.Error(h.logger).Log("method", "ServeHTTP", "err", err)
	respondJSON(w, h.logger, http.StatusInternalServerError, Failed(err))
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == FormField {
			return part, nil
		}
		part.Close()
	}
}

func respondJSON(w http.ResponseWriter, logger log.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		level.Warn(logger).Log("method", "respondJSON", "err", err)
	}
}
