// Package budget implements risk-budget governance for autonomous
// operations: guarded actions are gated against depletable budgets, and
// enforcement tightens progressively as budgets drain.
//
// # Overview
//
// The package is organized around a small set of cooperating pieces:
//
//   - Profile: declarative configuration naming the buckets an
//     operation class burns against and the policy for each zone.
//   - Context: immutable wallet identity (execution, group, agent) that
//     propagates across call chains and scopes bucket keys.
//   - Engine: the enforcement orchestrator. Evaluate resolves buckets,
//     burns atomically through the ledger, classifies zones, and returns
//     an explicit Decision.
//   - Guard: evaluate-then-run wrapper for call sites.
//   - Reporter: cron-scheduled balance snapshots for visibility.
//
// Balances live in a ledger.Store (memory, SQLite, or Redis); the engine
// holds no mutable budget state of its own.
//
// # Zones
//
// Each bucket's spent fraction maps onto four ordered zones:
//
//	green  -> normal operation
//	yellow -> caution, degradation begins
//	orange -> restriction, cheaper paths and throttling
//	red    -> exhausted, halt or report-only
//
// When a profile has several buckets the worst zone wins.
//
// # Usage
//
//	profiles, err := budget.LoadProfiles("profiles.yaml")
//	engine, err := budget.NewEngine(profiles, budget.EngineConfig{
//	    Store: store,
//	})
//
//	bc := budget.NewExecutionContext("team-7", "researcher")
//	guard := budget.NewGuard(engine)
//	_, err = guard.Do(ctx, "agents", bc, "external_call", 12.5,
//	    func(ctx context.Context, d *budget.Decision) error {
//	        return callTool(ctx, d.Degrade["model"])
//	    })
//
// # Thread Safety
//
// Engine, Guard, and Reporter are safe for concurrent use. Atomicity of
// concurrent burns is guaranteed by the ledger store, not by the engine.
package budget
