package metrics

import (
	"time"

	"mercator-hq/janus/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns all Prometheus metrics for the budget engine.
//
// Metrics:
//   - janus_budget_evaluations_total: evaluations by profile and outcome
//   - janus_budget_evaluation_duration_seconds: evaluation latency
//   - janus_budget_burn_total: cycles burned by profile
//   - janus_budget_zone_transitions_total: bucket zone changes by target zone
//   - janus_budget_topups_total: admin credits by profile
//   - janus_budget_ledger_errors_total: ledger failures by operation
//   - janus_budget_bucket_remaining: remaining balance per bucket key
//   - janus_budget_bucket_spent_fraction: spent fraction per bucket key
//
// A nil *Collector is valid and records nothing, so callers never need to
// guard metric calls.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	burnTotal          *prometheus.CounterVec
	zoneTransitions    *prometheus.CounterVec
	topups             *prometheus.CounterVec
	ledgerErrors       *prometheus.CounterVec
	bucketRemaining    *prometheus.GaugeVec
	bucketSpent        *prometheus.GaugeVec
}

// NewCollector creates a metrics collector registered against registry.
// If registry is nil, a fresh registry is created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultSubsystem
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Budget evaluations by profile and outcome",
			},
			[]string{"profile", "outcome", "zone"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Evaluation latency including ledger round trips and throttle waits",
				// Sub-millisecond for memory ledgers up to multi-second throttle waits
				Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"profile"},
		),

		burnTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "burn_total",
				Help:      "Cycles burned by profile",
			},
			[]string{"profile"},
		),

		zoneTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "zone_transitions_total",
				Help:      "Bucket zone changes by profile and target zone",
			},
			[]string{"profile", "zone"},
		),

		topups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "topups_total",
				Help:      "Admin topups by profile",
			},
			[]string{"profile"},
		),

		ledgerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_errors_total",
				Help:      "Ledger failures by operation and applied fail policy",
			},
			[]string{"operation", "fail_policy"},
		),

		bucketRemaining: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bucket_remaining",
				Help:      "Remaining balance per bucket key",
			},
			[]string{"bucket_key"},
		),

		bucketSpent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "bucket_spent_fraction",
				Help:      "Spent fraction per bucket key",
			},
			[]string{"bucket_key"},
		),
	}

	registry.MustRegister(
		c.evaluations,
		c.evaluationDuration,
		c.burnTotal,
		c.zoneTransitions,
		c.topups,
		c.ledgerErrors,
		c.bucketRemaining,
		c.bucketSpent,
	)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordEvaluation records one completed evaluation.
func (c *Collector) RecordEvaluation(profile, outcome, zone string, duration time.Duration) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.evaluations.WithLabelValues(profile, outcome, zone).Inc()
	c.evaluationDuration.WithLabelValues(profile).Observe(duration.Seconds())
}

// RecordBurn records cycles billed against a profile.
func (c *Collector) RecordBurn(profile string, cost float64) {
	if c == nil || !c.config.Enabled || cost <= 0 {
		return
	}
	c.burnTotal.WithLabelValues(profile).Add(cost)
}

// RecordZoneTransition records a bucket entering a new zone.
func (c *Collector) RecordZoneTransition(profile, zone string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.zoneTransitions.WithLabelValues(profile, zone).Inc()
}

// RecordTopup records an admin credit.
func (c *Collector) RecordTopup(profile string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.topups.WithLabelValues(profile).Inc()
}

// RecordLedgerError records a ledger failure and the fail policy applied.
func (c *Collector) RecordLedgerError(operation, failPolicy string) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.ledgerErrors.WithLabelValues(operation, failPolicy).Inc()
}

// SetBucketGauges publishes the current balance of one bucket key.
func (c *Collector) SetBucketGauges(bucketKey string, remaining, spentFraction float64) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.bucketRemaining.WithLabelValues(bucketKey).Set(remaining)
	c.bucketSpent.WithLabelValues(bucketKey).Set(spentFraction)
}
