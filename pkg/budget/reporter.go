package budget

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
)

// Reporter periodically walks the ledger and publishes per-bucket
// balances as snapshot events and gauge metrics. It runs on a cron
// schedule (e.g. every minute) so operators see drift even for buckets
// that are not being evaluated right now.
type Reporter struct {
	engine   *Engine
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewReporter creates a snapshot reporter for the engine.
//
// Common cron expressions:
//   - "* * * * *"    - Every minute
//   - "*/5 * * * *"  - Every 5 minutes
//   - "0 * * * *"    - Hourly
//
// An empty schedule disables the reporter.
func NewReporter(engine *Engine, schedule string) *Reporter {
	return &Reporter{
		engine:   engine,
		schedule: schedule,
		cron:     cron.New(),
		logger:   engine.logger.With("component", "budget.reporter"),
	}
}

// Start begins scheduled snapshot reporting. It validates the cron
// expression, registers the job, and stops itself when ctx is cancelled.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.schedule == "" {
		r.logger.Info("snapshot schedule not configured, skipping reporter")
		return nil
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.schedule, err)
	}

	if _, err := r.cron.AddFunc(r.schedule, func() {
		r.report(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule snapshot reporting: %w", err)
	}

	r.cron.Start()
	r.running = true

	r.logger.Info("snapshot reporter started",
		"schedule", r.schedule,
	)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// Stop halts the reporter. A snapshot already in flight runs to
// completion.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.running = false

	r.logger.Info("snapshot reporter stopped")
}

// report executes one snapshot cycle across all loaded profiles.
func (r *Reporter) report(ctx context.Context) {
	for name, p := range r.engine.profiles {
		lctx, cancel := context.WithTimeout(ctx, r.engine.ledgerTimeout)
		entries, err := r.engine.store.List(lctx, name+":")
		cancel()
		if err != nil {
			r.logger.Error("snapshot listing failed",
				"profile", name,
				"error", err,
			)
			continue
		}

		for _, entry := range entries {
			fraction := entry.SpentFraction()
			r.engine.metrics.SetBucketGauges(entry.Key, entry.Remaining, fraction)

			ev := newEvent(EventSnapshot, name)
			ev.BucketKey = entry.Key
			ev.SpentFraction = fraction
			ev.Zone = classifyKey(p, entry.Key, fraction)
			r.engine.emitter.Emit(ev)
		}

		r.logger.Debug("snapshot cycle completed",
			"profile", name,
			"buckets", len(entries),
		)
	}
}

// classifyKey resolves the bucket name embedded in a ledger key back to
// its thresholds. Keys that no longer match a configured bucket report
// green.
func classifyKey(p *Profile, key string, fraction float64) Zone {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 {
		return ZoneGreen
	}
	for i := range p.Buckets {
		if p.Buckets[i].Name == parts[1] {
			return ClassifyZone(fraction, p.Buckets[i].Thresholds)
		}
	}
	return ZoneGreen
}
