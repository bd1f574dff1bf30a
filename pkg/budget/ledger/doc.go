// Package ledger provides the atomic balance store behind the budget engine.
//
// # Overview
//
// The ledger holds one entry per resolved bucket key with a remaining
// balance and a nominal limit. All mutation flows through two primitives:
//
//   - AuthorizeAndBurn: atomic multi-key check-and-decrement
//   - Topup: out-of-band additive credit to one bucket
//
// Three backends are provided:
//
//   - Memory: fast in-process store (default, no persistence)
//   - SQLite: file-based persistence for single-instance deployments
//   - Redis: shared store for multi-instance deployments, burns executed
//     as a single Lua script so concurrent callers never race
//
// # Usage
//
//	store := ledger.NewMemoryStore()
//
//	refs := []ledger.Ref{{Key: "agents:execution:run-7", Limit: 100}}
//	res, err := store.AuthorizeAndBurn(ctx, refs, 10, ledger.ModeHalt)
//	if err != nil {
//	    // store unavailable, apply fail-open/fail-closed policy
//	}
//	if !res.Authorized {
//	    // insufficient balance, nothing was charged
//	}
//
// # Thread Safety
//
// All backends are safe for concurrent use. Operations on the same bucket
// key are linearizable; the remaining balance never goes negative under
// ModeHalt regardless of how many callers race.
package ledger
