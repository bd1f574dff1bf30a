// Package telemetry groups the observability surfaces of the budget
// engine.
//
// # Components
//
//   - logging: slog setup from configuration (level, json/text format)
//   - metrics: Prometheus collector for evaluations, burns, zone
//     transitions, topups, ledger errors, and per-bucket gauges
//
// # Usage
//
//	logger := logging.Setup(cfg.Telemetry.Logging)
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//
//	engine, err := budget.NewEngine(profiles, budget.EngineConfig{
//	    Logger:  logger,
//	    Metrics: collector,
//	})
//
//	http.Handle("/metrics", collector.Handler())
package telemetry
