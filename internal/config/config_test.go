package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SIGNING_SECRET", "")
	t.Setenv("STORAGE_BACKEND", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxUploadSize != 10485760 {
		t.Fatalf("expected 10 MiB default, got %d", cfg.MaxUploadSize)
	}
	if cfg.RecordTTL != 24*time.Hour {
		t.Fatalf("expected 24h record ttl, got %s", cfg.RecordTTL)
	}
	if cfg.StorageBackend != BackendMinio {
		t.Fatalf("expected minio backend, got %s", cfg.StorageBackend)
	}
	if len(cfg.SigningSecret) != 32 {
		t.Fatalf("expected generated secret")
	}
	if len(cfg.AllowedExtensions) != 6 || cfg.RateLimitPerMinute != 60 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_UPLOAD_SIZE", "2048")
	t.Setenv("ALLOWED_EXTENSIONS", " pdf , txt ,,")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("STORAGE_BACKEND", "MEMORY")
	t.Setenv("STORAGE_TIMEOUT", "5s")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("PUBLIC_BASE_URL", "https://cdn.example/")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxUploadSize != 2048 || cfg.StorageTimeout != 5*time.Second || !cfg.S3UseSSL {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[1] != "txt" {
		t.Fatalf("unexpected extensions %q", cfg.AllowedExtensions)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.StorageBackend != BackendMemory {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.PublicBaseURL != "https://cdn.example" {
		t.Fatalf("trailing slash not trimmed: %s", cfg.PublicBaseURL)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_SIZE", "-1")
	t.Setenv("WORKERS", "many")
	t.Setenv("STORAGE_BACKEND", "memory")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxUploadSize != defaultMaxUploadSize || cfg.ProcessingPool != defaultWorkerCount {
		t.Fatalf("invalid values must fall back to defaults: %+v", cfg)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "floppy")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadTraceExporter(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TraceExporter != TraceExporterNone || cfg.ServiceName != "todys" || cfg.WorkerMetricsAddress != ":9091" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	if cfg, err = Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TraceExporter != TraceExporterOTLP {
		t.Fatalf("endpoint should enable otlp, got %s", cfg.TraceExporter)
	}

	t.Setenv("OTEL_TRACES_EXPORTER", "Console")
	if cfg, err = Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TraceExporter != TraceExporterConsole {
		t.Fatalf("explicit exporter should win, got %s", cfg.TraceExporter)
	}

	t.Setenv("OTEL_TRACES_EXPORTER", "zipkin")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown exporter")
	}
}
