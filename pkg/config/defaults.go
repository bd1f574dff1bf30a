package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultLedgerBackend  = "memory"
	DefaultLedgerTimeout  = 5 * time.Second
	DefaultFailPolicy     = "closed"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
	DefaultRedisKeyPrefix = "janus:ledger:"
	DefaultNamespace      = "janus"
	DefaultSubsystem      = "budget"
)

// ApplyDefaults fills unset fields with their default values.
// It is called by LoadConfig before validation.
func ApplyDefaults(cfg *Config) {
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = DefaultLedgerBackend
	}
	if cfg.Ledger.Timeout == 0 {
		cfg.Ledger.Timeout = DefaultLedgerTimeout
	}
	if cfg.Ledger.Redis.KeyPrefix == "" {
		cfg.Ledger.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Enforcement.FailPolicy == "" {
		cfg.Enforcement.FailPolicy = DefaultFailPolicy
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultSubsystem
	}
}
