package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g. "ledger.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	switch cfg.Ledger.Backend {
	case "memory":
	case "sqlite":
		if cfg.Ledger.SQLite.Path == "" {
			errs = append(errs, FieldError{"ledger.sqlite.path", "path is required for the sqlite backend"})
		}
	case "redis":
		if cfg.Ledger.Redis.Addr == "" {
			errs = append(errs, FieldError{"ledger.redis.addr", "addr is required for the redis backend"})
		}
	default:
		errs = append(errs, FieldError{"ledger.backend", fmt.Sprintf("unknown backend %q (memory, sqlite, redis)", cfg.Ledger.Backend)})
	}

	if cfg.Ledger.Timeout < 0 {
		errs = append(errs, FieldError{"ledger.timeout", "timeout cannot be negative"})
	}

	switch cfg.Enforcement.FailPolicy {
	case "open", "closed":
	default:
		errs = append(errs, FieldError{"enforcement.fail_policy", fmt.Sprintf("must be %q or %q", "open", "closed")})
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", cfg.Telemetry.Logging.Level)})
	}

	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q", cfg.Telemetry.Logging.Format)})
	}

	if cfg.Reporter.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Reporter.Schedule); err != nil {
			errs = append(errs, FieldError{"reporter.schedule", fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
