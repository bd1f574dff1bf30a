package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/janus/pkg/budget/ledger"
	"mercator-hq/janus/pkg/telemetry/metrics"
)

// Engine is the enforcement orchestrator: it answers "may this action
// with this cost proceed, and how?" by composing the bucket resolver, the
// ledger store, the zone classifier, and the zone policy lookup.
//
// The ledger store is the single source of truth. The engine never caches
// remaining balances for decision-making; every evaluation re-reads
// current state through the atomic authorize-and-burn primitive.
//
// # Example
//
//	profiles, err := budget.LoadProfiles("profiles.yaml")
//	engine, err := budget.NewEngine(profiles, budget.EngineConfig{
//	    Store: ledger.NewMemoryStore(),
//	})
//
//	bc := budget.NewExecutionContext("team-7", "researcher")
//	decision, err := engine.Evaluate(ctx, budget.Request{
//	    Profile: "agents",
//	    Context: bc,
//	    Action:  "external_call",
//	    Cost:    12.5,
//	})
//	if !decision.Allowed() {
//	    // abort the guarded action
//	}
type Engine struct {
	profiles      map[string]*Profile
	store         ledger.Store
	emitter       Emitter
	metrics       *metrics.Collector
	logger        *slog.Logger
	failPolicy    FailPolicy
	ledgerTimeout time.Duration
}

// EngineConfig configures an Engine. Zero values select the defaults:
// in-memory ledger, log-based event emitter, fail-closed, 5s ledger
// timeout, no metrics.
type EngineConfig struct {
	// Store is the ledger backend. Defaults to an in-memory store.
	Store ledger.Store

	// Emitter receives visibility events. Defaults to a LogEmitter.
	Emitter Emitter

	// Metrics is the optional Prometheus collector. Nil disables metrics.
	Metrics *metrics.Collector

	// Logger is the structured logger. Defaults to slog.Default.
	Logger *slog.Logger

	// FailPolicy selects the outcome when the ledger is unavailable.
	// Defaults to FailClosed.
	FailPolicy FailPolicy

	// LedgerTimeout bounds each ledger operation. Defaults to 5 seconds.
	LedgerTimeout time.Duration
}

// NewEngine creates an engine serving the given profiles. Every profile
// is validated; an invalid profile fails engine construction so that
// configuration errors surface at load time, never at evaluation time.
func NewEngine(profiles []*Profile, cfg EngineConfig) (*Engine, error) {
	if len(profiles) == 0 {
		return nil, configErrorf("profiles", "at least one profile is required")
	}

	byName := make(map[string]*Profile, len(profiles))
	for _, p := range profiles {
		p.ApplyDefaults()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[p.Name]; dup {
			return nil, configErrorf(fmt.Sprintf("profiles.%s", p.Name), "duplicate profile name")
		}
		byName[p.Name] = p
	}

	if cfg.Store == nil {
		cfg.Store = ledger.NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = NewLogEmitter(cfg.Logger)
	}
	if cfg.FailPolicy == "" {
		cfg.FailPolicy = FailClosed
	}
	if cfg.LedgerTimeout == 0 {
		cfg.LedgerTimeout = 5 * time.Second
	}

	return &Engine{
		profiles:      byName,
		store:         cfg.Store,
		emitter:       cfg.Emitter,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger.With("component", "budget.engine"),
		failPolicy:    cfg.FailPolicy,
		ledgerTimeout: cfg.LedgerTimeout,
	}, nil
}

// Store returns the engine's ledger store.
func (e *Engine) Store() ledger.Store {
	return e.store
}

// ProfileNames returns the names of all loaded profiles.
func (e *Engine) ProfileNames() []string {
	names := make([]string, 0, len(e.profiles))
	for name := range e.profiles {
		names = append(names, name)
	}
	return names
}

// Evaluate runs one enforcement evaluation for a guarded action.
//
// The algorithm:
//  1. Resolve the profile's buckets to concrete ledger keys.
//  2. Snapshot current balances and classify the pre-burn zones. The
//     accounting mode for this burn is the onExhaust of the policy for
//     the worst pre-burn zone (hysteresis: the mode is decided by the
//     zone the buckets are already in, not the zone the burn produces).
//  3. Authorize-and-burn atomically across all buckets.
//  4. Reclassify from post-burn balances, take the worst zone, and look
//     up its policy.
//  5. Produce the decision, waiting out any throttle delay first.
//
// A committed burn is never refunded: an action billed on the way into
// the red zone stays billed, and recovery requires an explicit topup.
//
// Ledger unavailability resolves through the configured fail policy and
// is returned as a halt or proceed decision with the cause attached.
// The returned error is non-nil only for configuration-class problems
// (unknown profile, unresolved key template, negative cost) and caller
// cancellation during a throttle wait.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Decision, error) {
	start := time.Now()

	p, ok := e.profiles[req.Profile]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, req.Profile)
	}
	if req.Cost < 0 {
		return nil, fmt.Errorf("%w: cost %v", ledger.ErrInvalidAmount, req.Cost)
	}

	resolved, err := ResolveKeys(p, req.Context)
	if err != nil {
		return nil, err
	}
	refs := Refs(resolved)

	pre, err := e.snapshot(ctx, refs)
	if err != nil {
		return e.ledgerFailure(p, "snapshot", err, start), nil
	}
	preStatuses := statuses(resolved, pre)
	preWorst := WorstZone(preStatuses)
	mode := p.Policy(preWorst).OnExhaust

	res, err := e.burn(ctx, refs, req.Cost, burnMode(mode))
	if err != nil {
		return e.ledgerFailure(p, "authorize", err, start), nil
	}

	postStatuses := statuses(resolved, res.Entries)
	postWorst := WorstZone(postStatuses)

	e.observeBuckets(p, mode, preStatuses, postStatuses)
	if res.Authorized {
		e.metrics.RecordBurn(p.Name, req.Cost)
	}

	decision := e.decide(p, req, res.Authorized, postStatuses, postWorst)

	if decision.Allowed() && decision.ThrottleDelay > 0 {
		if err := e.throttleWait(ctx, decision.ThrottleDelay); err != nil {
			return nil, err
		}
	}

	e.metrics.RecordEvaluation(p.Name, string(decision.Outcome), decision.Zone.String(), time.Since(start))
	e.logger.Debug("evaluation complete",
		"profile", p.Name,
		"action", req.Action,
		"cost", req.Cost,
		"outcome", string(decision.Outcome),
		"zone", decision.Zone.String(),
	)

	return decision, nil
}

// decide maps the post-burn state to an enforcement decision.
func (e *Engine) decide(p *Profile, req Request, authorized bool, buckets []BucketStatus, zone Zone) *Decision {
	if !authorized {
		// Halt-mode rejection: nothing was charged.
		return &Decision{
			Outcome: OutcomeHalt,
			Zone:    zone,
			Buckets: buckets,
			Reason:  "budget exhausted",
			Cause:   ErrBudgetExhausted,
		}
	}

	pol := p.Policy(zone)
	d := &Decision{
		Outcome:          OutcomeProceed,
		Zone:             zone,
		Buckets:          buckets,
		Degrade:          pol.Degrade,
		RetryMax:         pol.Retries.Max,
		FallbackStrategy: pol.Fallback.Strategy,
	}

	if zone == ZoneRed {
		if pol.OnExhaust == ExhaustReportOnly {
			// Report-only never halts; the fallback strategy is a hint.
			return d
		}
		// The burn was already committed under the pre-burn zone's mode;
		// the cost is sunk and this evaluation still halts.
		d.Outcome = OutcomeHalt
		d.Reason = "bucket exhausted"
		d.Cause = ErrBudgetExhausted
		return d
	}

	if !pol.allows(req.Action) {
		d.Outcome = OutcomeBlock
		d.Reason = fmt.Sprintf("action %q blocked in %s zone", req.Action, zone)
		d.Cause = ErrPolicyViolation
		return d
	}

	switch zone {
	case ZoneGreen:
		d.Outcome = OutcomeProceed
	default:
		d.Outcome = OutcomeDegrade
	}
	if delay := pol.Throttle.MinDelay(); delay > 0 {
		d.Outcome = OutcomeThrottle
		d.ThrottleDelay = delay
	}
	return d
}

// Topup applies an out-of-band additive credit to one bucket. Both
// remaining and limit grow by amount, so the spent fraction drops and the
// bucket can move deterministically back toward green. Each call is a
// fresh credit; idempotency is the caller's responsibility.
func (e *Engine) Topup(ctx context.Context, profileName, bucketName, scopeKey string, amount float64) (ledger.Entry, error) {
	p, ok := e.profiles[profileName]
	if !ok {
		return ledger.Entry{}, fmt.Errorf("%w: %q", ErrProfileNotFound, profileName)
	}
	var bucket *Bucket
	for i := range p.Buckets {
		if p.Buckets[i].Name == bucketName {
			bucket = &p.Buckets[i]
			break
		}
	}
	if bucket == nil {
		return ledger.Entry{}, configErrorf(
			fmt.Sprintf("profiles.%s.buckets.%s", profileName, bucketName),
			"unknown bucket",
		)
	}

	ref := ledger.Ref{
		Key:   profileName + ":" + bucketName + ":" + scopeKey,
		Limit: bucket.Limit,
	}

	lctx, cancel := context.WithTimeout(ctx, e.ledgerTimeout)
	defer cancel()

	pre, err := e.store.Snapshot(lctx, []ledger.Ref{ref})
	if err != nil {
		return ledger.Entry{}, err
	}
	preZone := ClassifyZone(pre[0].SpentFraction(), bucket.Thresholds)

	entry, err := e.store.Topup(lctx, ref, amount)
	if err != nil {
		return ledger.Entry{}, err
	}
	postZone := ClassifyZone(entry.SpentFraction(), bucket.Thresholds)

	ev := newEvent(EventTopup, profileName)
	ev.BucketKey = entry.Key
	ev.Zone = postZone
	ev.PrevZone = preZone
	ev.SpentFraction = entry.SpentFraction()
	e.emitter.Emit(ev)

	if postZone != preZone {
		tr := newEvent(EventZoneTransition, profileName)
		tr.BucketKey = entry.Key
		tr.Zone = postZone
		tr.PrevZone = preZone
		tr.SpentFraction = entry.SpentFraction()
		e.emitter.Emit(tr)
		e.metrics.RecordZoneTransition(profileName, postZone.String())
	}

	e.metrics.RecordTopup(profileName)
	e.metrics.SetBucketGauges(entry.Key, entry.Remaining, entry.SpentFraction())

	e.logger.Info("topup applied",
		"profile", profileName,
		"bucket_key", entry.Key,
		"amount", amount,
		"remaining", entry.Remaining,
		"limit", entry.Limit,
	)

	return entry, nil
}

// Inspect returns the current per-bucket status for a context without
// burning anything.
func (e *Engine) Inspect(ctx context.Context, profileName string, bc Context) ([]BucketStatus, error) {
	p, ok := e.profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, profileName)
	}
	resolved, err := ResolveKeys(p, bc)
	if err != nil {
		return nil, err
	}
	entries, err := e.snapshot(ctx, Refs(resolved))
	if err != nil {
		return nil, err
	}
	return statuses(resolved, entries), nil
}

// snapshot reads balances under the ledger timeout.
func (e *Engine) snapshot(ctx context.Context, refs []ledger.Ref) ([]ledger.Entry, error) {
	lctx, cancel := context.WithTimeout(ctx, e.ledgerTimeout)
	defer cancel()
	return e.store.Snapshot(lctx, refs)
}

// burn runs the atomic authorize-and-burn under the ledger timeout.
func (e *Engine) burn(ctx context.Context, refs []ledger.Ref, cost float64, mode ledger.Mode) (*ledger.BurnResult, error) {
	lctx, cancel := context.WithTimeout(ctx, e.ledgerTimeout)
	defer cancel()
	return e.store.AuthorizeAndBurn(lctx, refs, cost, mode)
}

// throttleWait blocks for the throttle delay. It holds no ledger-side
// state and is cancelled only by the caller abandoning the evaluation.
func (e *Engine) throttleWait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// observeBuckets emits per-bucket visibility events and gauges for one
// evaluation. A report-only overrun produces a single overrun event in
// place of a separate zone transition.
func (e *Engine) observeBuckets(p *Profile, mode ExhaustMode, pre, post []BucketStatus) {
	for i := range post {
		prez, postz := pre[i].Zone, post[i].Zone

		switch {
		case mode == ExhaustReportOnly && post[i].Remaining < 0 && pre[i].Remaining >= 0:
			ev := newEvent(EventOverrun, p.Name)
			ev.BucketKey = post[i].Key
			ev.Zone = postz
			ev.PrevZone = prez
			ev.SpentFraction = post[i].SpentFraction
			ev.Mode = mode
			e.emitter.Emit(ev)
		case postz != prez:
			ev := newEvent(EventZoneTransition, p.Name)
			ev.BucketKey = post[i].Key
			ev.Zone = postz
			ev.PrevZone = prez
			ev.SpentFraction = post[i].SpentFraction
			ev.Mode = mode
			e.emitter.Emit(ev)
		}
		if postz != prez {
			e.metrics.RecordZoneTransition(p.Name, postz.String())
		}

		e.metrics.SetBucketGauges(post[i].Key, post[i].Remaining, post[i].SpentFraction)
	}
}

// ledgerFailure maps ledger unavailability to the configured fail policy.
// The caller always receives an explicit proceed-or-halt decision.
func (e *Engine) ledgerFailure(p *Profile, op string, err error, start time.Time) *Decision {
	e.metrics.RecordLedgerError(op, string(e.failPolicy))
	e.logger.Error("ledger unavailable",
		"profile", p.Name,
		"operation", op,
		"fail_policy", string(e.failPolicy),
		"error", err,
	)

	var d *Decision
	if e.failPolicy == FailOpen {
		ev := newEvent(EventFailOpen, p.Name)
		e.emitter.Emit(ev)
		d = &Decision{
			Outcome: OutcomeProceed,
			Reason:  "ledger unavailable (fail-open)",
			Cause:   err,
		}
	} else {
		d = &Decision{
			Outcome: OutcomeHalt,
			Reason:  "ledger unavailable (fail-closed)",
			Cause:   err,
		}
	}

	e.metrics.RecordEvaluation(p.Name, string(d.Outcome), d.Zone.String(), time.Since(start))
	return d
}

// statuses joins resolved buckets with their ledger entries.
func statuses(resolved []ResolvedBucket, entries []ledger.Entry) []BucketStatus {
	out := make([]BucketStatus, len(resolved))
	for i, r := range resolved {
		e := entries[i]
		fraction := e.SpentFraction()
		out[i] = BucketStatus{
			Name:          r.Bucket.Name,
			Key:           r.Key,
			Remaining:     e.Remaining,
			Limit:         e.Limit,
			SpentFraction: fraction,
			Zone:          ClassifyZone(fraction, r.Bucket.Thresholds),
		}
	}
	return out
}

// burnMode converts a policy exhaust mode to the ledger's burn mode.
func burnMode(m ExhaustMode) ledger.Mode {
	if m == ExhaustReportOnly {
		return ledger.ModeReportOnly
	}
	return ledger.ModeHalt
}
