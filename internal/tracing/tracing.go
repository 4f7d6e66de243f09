// Package tracing installs the OpenTelemetry tracer provider used by the
// API and the worker.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/dharsanguruparan/todys/internal/config"
)

// Shutdown flushes pending spans and stops the provider.
type Shutdown func(context.Context) error

// Setup builds a provider for cfg.TraceExporter and makes it global along
// with the W3C trace context propagator. With the none exporter spans are
// still recorded, so trace ids reach the logs, but nothing leaves the
// process.
func Setup(ctx context.Context, cfg *config.Config) (Shutdown, error) {
	exporter, err := newExporter(ctx, cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	tp := NewProvider(cfg.ServiceName, exporter)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// NewProvider returns a provider tagged with service that batches spans to
// exporter. A nil exporter records spans without exporting them.
func NewProvider(service string, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...)
}

func newExporter(ctx context.Context, cfg *config.Config, console io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case config.TraceExporterOTLP:
		var opts []otlptracehttp.Option
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("init otlp exporter: %w", err)
		}
		return exp, nil
	case config.TraceExporterConsole:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(console))
		if err != nil {
			return nil, fmt.Errorf("init console exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, nil
	}
}
