package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
profiles: profiles.yaml
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Ledger.Backend != "memory" {
		t.Errorf("Expected default backend memory, got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Timeout != 5*time.Second {
		t.Errorf("Expected default timeout 5s, got %v", cfg.Ledger.Timeout)
	}
	if cfg.Enforcement.FailPolicy != "closed" {
		t.Errorf("Expected default fail policy closed, got %q", cfg.Enforcement.FailPolicy)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("Expected info/json logging defaults, got %q/%q",
			cfg.Telemetry.Logging.Level, cfg.Telemetry.Logging.Format)
	}
	if cfg.Telemetry.Metrics.Namespace != "janus" || cfg.Telemetry.Metrics.Subsystem != "budget" {
		t.Errorf("Expected janus/budget metric defaults, got %q/%q",
			cfg.Telemetry.Metrics.Namespace, cfg.Telemetry.Metrics.Subsystem)
	}
}

func TestLoadConfig_FullFile(t *testing.T) {
	path := writeConfig(t, `
profiles: /etc/janus/profiles.yaml
ledger:
  backend: redis
  timeout: 2s
  redis:
    addr: localhost:6379
    db: 3
    key_prefix: "test:ledger:"
enforcement:
  fail_policy: open
telemetry:
  logging:
    level: debug
    format: text
  metrics:
    enabled: true
reporter:
  schedule: "*/5 * * * *"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Ledger.Backend != "redis" {
		t.Errorf("Expected redis backend, got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Redis.Addr != "localhost:6379" || cfg.Ledger.Redis.DB != 3 {
		t.Errorf("Unexpected redis config: %+v", cfg.Ledger.Redis)
	}
	if cfg.Ledger.Redis.KeyPrefix != "test:ledger:" {
		t.Errorf("Expected custom key prefix, got %q", cfg.Ledger.Redis.KeyPrefix)
	}
	if cfg.Ledger.Timeout != 2*time.Second {
		t.Errorf("Expected 2s timeout, got %v", cfg.Ledger.Timeout)
	}
	if cfg.Enforcement.FailPolicy != "open" {
		t.Errorf("Expected fail policy open, got %q", cfg.Enforcement.FailPolicy)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("Expected metrics enabled")
	}
	if cfg.Reporter.Schedule != "*/5 * * * *" {
		t.Errorf("Expected reporter schedule, got %q", cfg.Reporter.Schedule)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
ledger:
  backend: memory
`)

	t.Setenv("JANUS_LEDGER_BACKEND", "sqlite")
	t.Setenv("JANUS_LEDGER_SQLITE_PATH", "/var/lib/janus/ledger.db")
	t.Setenv("JANUS_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Ledger.Backend != "sqlite" {
		t.Errorf("Expected env override to sqlite, got %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.SQLite.Path != "/var/lib/janus/ledger.db" {
		t.Errorf("Expected env sqlite path, got %q", cfg.Ledger.SQLite.Path)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected env log level debug, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{}
	cfg.Ledger.Backend = "cassandra"
	cfg.Enforcement.FailPolicy = "maybe"
	cfg.Telemetry.Logging.Level = "verbose"
	cfg.Telemetry.Logging.Format = "json"
	cfg.Reporter.Schedule = "not a cron expression"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation errors")
	}

	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 4 {
		t.Errorf("Expected 4 errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
	if !strings.Contains(err.Error(), "ledger.backend") {
		t.Errorf("Expected ledger.backend in error text, got: %v", err)
	}
}

func TestValidate_BackendRequirements(t *testing.T) {
	sqlite := &Config{}
	ApplyDefaults(sqlite)
	sqlite.Ledger.Backend = "sqlite"
	if err := Validate(sqlite); err == nil {
		t.Error("Expected error for sqlite backend without path")
	}

	redis := &Config{}
	ApplyDefaults(redis)
	redis.Ledger.Backend = "redis"
	if err := Validate(redis); err == nil {
		t.Error("Expected error for redis backend without addr")
	}

	memory := &Config{}
	ApplyDefaults(memory)
	if err := Validate(memory); err != nil {
		t.Errorf("Expected memory backend to validate, got %v", err)
	}
}
