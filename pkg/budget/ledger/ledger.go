package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Mode controls how AuthorizeAndBurn treats a bucket with insufficient balance.
type Mode string

const (
	// ModeHalt rejects the burn unless every bucket can cover the cost.
	// No bucket is decremented on rejection.
	ModeHalt Mode = "halt"

	// ModeReportOnly always applies the burn, even when it drives a
	// bucket's remaining balance negative. The deficit stays visible.
	ModeReportOnly Mode = "report_only"
)

// Ref addresses one bucket in the ledger. Limit seeds the entry when the
// key is referenced for the first time (remaining starts at the limit).
type Ref struct {
	// Key is the fully resolved bucket key (profile:bucket:scope-key).
	Key string

	// Limit is the nominal limit used to create the entry lazily.
	Limit float64
}

// Entry is the persisted balance for one bucket key.
// All mutation goes through AuthorizeAndBurn and Topup; callers treat
// returned entries as immutable snapshots.
type Entry struct {
	// Key is the bucket key this entry belongs to.
	Key string

	// Remaining is the unspent balance. Negative only under ModeReportOnly.
	Remaining float64

	// Limit is the nominal limit. Topup raises it together with Remaining.
	Limit float64
}

// SpentFraction returns (limit - remaining) / limit clamped to [0, +inf).
// Report-only deficits push the fraction past 1.0.
func (e Entry) SpentFraction() float64 {
	if e.Limit <= 0 {
		return 0
	}
	f := (e.Limit - e.Remaining) / e.Limit
	if f < 0 {
		return 0
	}
	return f
}

// BurnResult is the outcome of one AuthorizeAndBurn call.
type BurnResult struct {
	// Authorized reports whether the burn was applied. Always true under
	// ModeReportOnly. False means no bucket was decremented.
	Authorized bool

	// Entries holds the balances after the call, in Ref order. On a
	// rejected burn these are the untouched current balances.
	Entries []Entry
}

// Error types for ledger operations.
var (
	// ErrUnavailable is returned when the backing store is unreachable
	// or the operation timed out. The engine maps it to the configured
	// fail-open or fail-closed behavior.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrInvalidAmount is returned for a negative cost or topup amount.
	ErrInvalidAmount = errors.New("amount must be non-negative")
)

// Unavailable wraps err as an ErrUnavailable so callers can match it
// with errors.Is regardless of the backend that produced it.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// Store is the ledger contract shared by all backends.
//
// Implementations must be safe for concurrent use. Operations against the
// same bucket key are linearizable: concurrent burns and topups observe a
// total order and never lose updates. Operations against different keys
// are independent.
type Store interface {
	// AuthorizeAndBurn atomically checks and decrements every bucket in
	// refs by cost. Under ModeHalt the decrement is all-or-nothing: if
	// any bucket has remaining < cost, no bucket is charged and the
	// result reports Authorized=false. Under ModeReportOnly the
	// decrement always applies and remaining may go negative.
	//
	// Entries for unseen keys are created lazily at remaining = limit.
	AuthorizeAndBurn(ctx context.Context, refs []Ref, cost float64, mode Mode) (*BurnResult, error)

	// Topup adds amount to both the remaining balance and the limit of
	// one bucket. Raising both preserves the spent amount while lowering
	// the spent fraction, so a topup deterministically moves a bucket
	// back toward green.
	Topup(ctx context.Context, ref Ref, amount float64) (Entry, error)

	// Snapshot returns the current balances for refs without burning.
	// Unseen keys are reported at remaining = limit without being created.
	Snapshot(ctx context.Context, refs []Ref) ([]Entry, error)

	// List returns all existing entries whose key starts with prefix.
	// An empty prefix returns every entry.
	List(ctx context.Context, prefix string) ([]Entry, error)

	// Close releases any resources held by the store.
	Close() error
}
