// Package config provides configuration loading for the Janus engine.
//
// Configuration is YAML-based with environment variable overrides
// (JANUS_*) and fail-fast validation: a process never starts serving
// evaluations with an invalid configuration.
//
// # Example
//
//	profiles: ./profiles.yaml
//
//	ledger:
//	  backend: redis
//	  redis:
//	    addr: localhost:6379
//	  timeout: 5s
//
//	enforcement:
//	  fail_policy: closed
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
//
//	reporter:
//	  schedule: "*/5 * * * *"
package config
