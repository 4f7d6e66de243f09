package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/dharsanguruparan/todys/internal/config"
)

func TestProviderExportsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := NewProvider("todys-test", exp)
	_, span := tp.Tracer("test").Start(context.Background(), "upload.Process")
	span.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Name != "upload.Process" {
		t.Fatalf("expected one exported span, got %+v", spans)
	}
	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			service = kv.Value.AsString()
		}
	}
	if service != "todys-test" {
		t.Fatalf("expected service name on resource, got %q", service)
	}
}

func TestConsoleExporterWrites(t *testing.T) {
	var buf bytes.Buffer
	exp, err := newExporter(context.Background(), &config.Config{TraceExporter: config.TraceExporterConsole}, &buf)
	if err != nil {
		t.Fatalf("exporter: %v", err)
	}
	tp := NewProvider("todys", exp)
	_, span := tp.Tracer("test").Start(context.Background(), "storage.Upload")
	span.End()
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(buf.String(), "storage.Upload") {
		t.Fatalf("span missing from console output: %s", buf.String())
	}
}

func TestNoneExporterStillRecords(t *testing.T) {
	exp, err := newExporter(context.Background(), &config.Config{TraceExporter: config.TraceExporterNone}, nil)
	if err != nil || exp != nil {
		t.Fatalf("expected no exporter, got %v %v", exp, err)
	}
	shutdown, err := Setup(context.Background(), &config.Config{TraceExporter: config.TraceExporterNone, ServiceName: "todys"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer shutdown(context.Background())
	_, span := otel.Tracer("test").Start(context.Background(), "worker.Transform")
	defer span.End()
	if !span.SpanContext().IsValid() || !span.IsRecording() {
		t.Fatalf("global provider should record spans")
	}
}

func TestOTLPExporterBuilds(t *testing.T) {
	cfg := &config.Config{TraceExporter: config.TraceExporterOTLP, OTLPEndpoint: "http://127.0.0.1:4318"}
	exp, err := newExporter(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("exporter: %v", err)
	}
	if exp == nil {
		t.Fatalf("expected otlp exporter")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = exp.Shutdown(ctx)
}
