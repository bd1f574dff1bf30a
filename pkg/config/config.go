package config

import "time"

// Config is the top-level engine configuration, loaded once per process
// and treated as read-only for the process lifetime.
type Config struct {
	// Profiles is the path to the profile file (buckets + zone policies).
	Profiles string `yaml:"profiles"`

	// Ledger configures the balance store backend.
	Ledger LedgerConfig `yaml:"ledger"`

	// Enforcement configures engine-level enforcement behavior.
	Enforcement EnforcementConfig `yaml:"enforcement"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Reporter configures the scheduled bucket snapshot reporter.
	Reporter ReporterConfig `yaml:"reporter"`
}

// LedgerConfig selects and configures the ledger backend.
type LedgerConfig struct {
	// Backend is one of "memory", "sqlite", "redis".
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis"`

	// Timeout bounds every ledger operation. A timed-out operation is
	// treated as ledger unavailability, never an indefinite wait.
	Timeout time.Duration `yaml:"timeout"`
}

// SQLiteConfig configures the sqlite ledger backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`
}

// RedisConfig configures the redis ledger backend.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `yaml:"addr"`

	// Password is the optional Redis password.
	Password string `yaml:"password"`

	// DB is the Redis database number.
	DB int `yaml:"db"`

	// KeyPrefix namespaces all ledger keys.
	KeyPrefix string `yaml:"key_prefix"`
}

// EnforcementConfig configures engine-level enforcement behavior.
type EnforcementConfig struct {
	// FailPolicy is "closed" (halt when the ledger is unavailable) or
	// "open" (proceed with a visibility event).
	FailPolicy string `yaml:"fail_policy"`
}

// TelemetryConfig groups logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace (default "janus").
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem (default "budget").
	Subsystem string `yaml:"subsystem"`
}

// ReporterConfig configures the scheduled snapshot reporter.
type ReporterConfig struct {
	// Schedule is a standard cron expression. Empty disables the reporter.
	Schedule string `yaml:"schedule"`
}
