// Package metrics exposes the Prometheus collectors of the upload pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upload outcomes used as the result label.
const (
	ResultAccepted = "accepted"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Transform outcomes used as the result label.
const (
	TransformOK     = "ok"
	TransformFailed = "failed"
)

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	uploads    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	bytes      prometheus.Histogram
	transforms *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todys",
			Name:      "uploads_total",
			Help:      "Upload requests by outcome.",
		}, []string{"result"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todys",
			Name:      "validation_rejections_total",
			Help:      "Rejected uploads by reason.",
		}, []string{"reason"}),
		bytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "todys",
			Name:      "upload_bytes",
			Help:      "Size of accepted uploads in bytes.",
			Buckets:   []float64{1 << 10, 10 << 10, 100 << 10, 1 << 20, 5 << 20, 10 << 20},
		}),
		transforms: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "todys",
			Name:      "transform_total",
			Help:      "Document transformations by outcome.",
		}, []string{"result"}),
	}
}

// Accepted counts a stored upload of size bytes.
func (m *Metrics) Accepted(size int) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(ResultAccepted).Inc()
	m.bytes.Observe(float64(size))
}

// Rejected counts a validation rejection.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(ResultRejected).Inc()
	m.rejections.WithLabelValues(reason).Inc()
}

// Failed counts an upload that hit an internal error.
func (m *Metrics) Failed() {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(ResultError).Inc()
}

// Transformed counts a finished transformation.
func (m *Metrics) Transformed(result string) {
	if m == nil {
		return
	}
	m.transforms.WithLabelValues(result).Inc()
}
