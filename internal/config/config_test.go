package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "UPLOAD_DIR", "OUTPUT_DIR", "MAX_UPLOAD_BYTES", "RETENTION_MAX_AGE",
		"MAX_CONCURRENT_JOBS", "DEFAULT_ENGINE", "DB_DSN", "NOTIFY_BACKEND", "WORKER_CONCURRENCY", "APP_VERSION"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.HTTPAddr != ":5000" || cfg.UploadDir != "uploads" || cfg.OutputDir != "outputs" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 500*1024*1024 {
		t.Fatalf("max upload = %d", cfg.MaxUploadBytes)
	}
	if cfg.RetentionMaxAge != 24*time.Hour {
		t.Fatalf("max age = %s", cfg.RetentionMaxAge)
	}
	if cfg.DefaultEngine != "whisper" || cfg.DefaultLanguage != "en" || cfg.DefaultModel != "base" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.AppVersion != "1.0.0" || cfg.WorkerConcurrency != 2 || len(cfg.NotifyBackends) != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("RETENTION_MAX_AGE", "90m")
	t.Setenv("CLEANUP_SCHEDULE", "")
	t.Setenv("MAX_CONCURRENT_JOBS", "4")
	t.Setenv("NOTIFY_BACKEND", " Redis, rabbitmq ,none")
	t.Setenv("WORKER_CONCURRENCY", "500")
	t.Setenv("DEFAULT_ENGINE", "AUTOSUB")

	cfg := Load()
	if cfg.MaxUploadBytes != 1<<20 {
		t.Fatalf("max upload = %d", cfg.MaxUploadBytes)
	}
	if cfg.RetentionMaxAge != 90*time.Minute {
		t.Fatalf("max age = %s", cfg.RetentionMaxAge)
	}
	if cfg.CleanupSchedule != "" {
		t.Fatalf("schedule = %q, want disabled", cfg.CleanupSchedule)
	}
	if cfg.MaxConcurrentJobs != 4 || cfg.WorkerConcurrency != 50 || cfg.DefaultEngine != "autosub" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if !cfg.Notifies("redis") || !cfg.Notifies("rabbitmq") || len(cfg.NotifyBackends) != 2 {
		t.Fatalf("notify = %v", cfg.NotifyBackends)
	}
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "lots")
	t.Setenv("RETENTION_MAX_AGE", "soon")
	t.Setenv("WORKER_CONCURRENCY", "-3")

	cfg := Load()
	if cfg.MaxUploadBytes != 500<<20 || cfg.RetentionMaxAge != 24*time.Hour || cfg.WorkerConcurrency != 2 {
		t.Fatalf("unexpected fallbacks: %+v", cfg)
	}
}

func TestNotifies(t *testing.T) {
	t.Setenv("NOTIFY_BACKEND", " Redis , none")

	cfg := Load()
	if !cfg.Notifies("redis") {
		t.Fatalf("redis should be enabled: %v", cfg.NotifyBackends)
	}
	if cfg.Notifies("rabbitmq") || cfg.Notifies("none") {
		t.Fatalf("unexpected backends: %v", cfg.NotifyBackends)
	}
}
