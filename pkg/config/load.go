package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, applies JANUS_* environment variable
// overrides, validates the result, and returns any errors.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format JANUS_SECTION_FIELD
// and always take precedence over file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("JANUS_PROFILES"); val != "" {
		cfg.Profiles = val
	}
	if val := os.Getenv("JANUS_LEDGER_BACKEND"); val != "" {
		cfg.Ledger.Backend = val
	}
	if val := os.Getenv("JANUS_LEDGER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.Timeout = d
		}
	}
	if val := os.Getenv("JANUS_LEDGER_SQLITE_PATH"); val != "" {
		cfg.Ledger.SQLite.Path = val
	}
	if val := os.Getenv("JANUS_LEDGER_REDIS_ADDR"); val != "" {
		cfg.Ledger.Redis.Addr = val
	}
	if val := os.Getenv("JANUS_LEDGER_REDIS_PASSWORD"); val != "" {
		cfg.Ledger.Redis.Password = val
	}
	if val := os.Getenv("JANUS_LEDGER_REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Ledger.Redis.DB = db
		}
	}
	if val := os.Getenv("JANUS_ENFORCEMENT_FAIL_POLICY"); val != "" {
		cfg.Enforcement.FailPolicy = val
	}
	if val := os.Getenv("JANUS_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("JANUS_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("JANUS_REPORTER_SCHEDULE"); val != "" {
		cfg.Reporter.Schedule = val
	}
}
