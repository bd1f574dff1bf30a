package main

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"mercator-hq/janus/pkg/budget"
	"mercator-hq/janus/pkg/budget/ledger"
	"mercator-hq/janus/pkg/config"
	"mercator-hq/janus/pkg/telemetry/logging"
	"mercator-hq/janus/pkg/telemetry/metrics"
)

// app bundles the wired runtime pieces a command needs.
type app struct {
	cfg     *config.Config
	engine  *budget.Engine
	metrics *metrics.Collector
	cleanup func()
}

// setupApp loads configuration, opens the configured ledger backend, and
// builds an engine. The cleanup closes the store.
func setupApp() (*app, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	logger := logging.Setup(cfg.Telemetry.Logging)

	if cfg.Profiles == "" {
		return nil, fmt.Errorf("config %q does not name a profiles file", cfgFile)
	}
	profiles, err := budget.LoadProfiles(cfg.Profiles)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	}

	engine, err := budget.NewEngine(profiles, budget.EngineConfig{
		Store:         store,
		Logger:        logger,
		Metrics:       collector,
		FailPolicy:    budget.FailPolicy(cfg.Enforcement.FailPolicy),
		LedgerTimeout: cfg.Ledger.Timeout,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		engine:  engine,
		metrics: collector,
		cleanup: func() { store.Close() },
	}, nil
}

// openStore creates the ledger backend named by the config.
func openStore(cfg *config.Config) (ledger.Store, error) {
	switch cfg.Ledger.Backend {
	case "memory":
		return ledger.NewMemoryStore(), nil
	case "sqlite":
		return ledger.NewSQLiteStore(cfg.Ledger.SQLite.Path)
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Ledger.Redis.Addr,
			Password: cfg.Ledger.Redis.Password,
			DB:       cfg.Ledger.Redis.DB,
		})
		return ledger.NewRedisStore(client, ledger.WithKeyPrefix(cfg.Ledger.Redis.KeyPrefix)), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
