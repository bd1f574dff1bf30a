package budget

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Zone is the discretized spend level of a bucket. Zones are totally
// ordered: green < yellow < orange < red.
type Zone int

const (
	// ZoneGreen means spending is below the yellow threshold.
	ZoneGreen Zone = iota

	// ZoneYellow means spending reached the yellow threshold.
	ZoneYellow

	// ZoneOrange means spending reached the orange threshold.
	ZoneOrange

	// ZoneRed means the bucket is exhausted (spending reached the red
	// threshold, conventionally 1.0).
	ZoneRed
)

var zoneNames = map[Zone]string{
	ZoneGreen:  "green",
	ZoneYellow: "yellow",
	ZoneOrange: "orange",
	ZoneRed:    "red",
}

// String returns the lowercase zone name.
func (z Zone) String() string {
	if name, ok := zoneNames[z]; ok {
		return name
	}
	return fmt.Sprintf("zone(%d)", int(z))
}

// MarshalJSON renders the zone as its lowercase name.
func (z Zone) MarshalJSON() ([]byte, error) {
	return json.Marshal(z.String())
}

// UnmarshalJSON parses a lowercase zone name.
func (z *Zone) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseZone(name)
	if err != nil {
		return err
	}
	*z = parsed
	return nil
}

// ParseZone converts a zone name to a Zone.
func ParseZone(s string) (Zone, error) {
	for z, name := range zoneNames {
		if name == s {
			return z, nil
		}
	}
	return ZoneGreen, fmt.Errorf("unknown zone %q", s)
}

// Zones lists all zones in ascending severity order.
func Zones() []Zone {
	return []Zone{ZoneGreen, ZoneYellow, ZoneOrange, ZoneRed}
}

// Outcome is the enforcement verdict of one evaluation.
type Outcome string

const (
	// OutcomeProceed permits the action unchanged.
	OutcomeProceed Outcome = "proceed"

	// OutcomeDegrade permits the action with the zone's degrade directives.
	OutcomeDegrade Outcome = "degrade"

	// OutcomeThrottle permits the action with degrade directives after the
	// zone's minimum delay has elapsed. The engine has already waited when
	// the decision is returned.
	OutcomeThrottle Outcome = "throttle"

	// OutcomeBlock rejects this action class; the bucket itself is not
	// exhausted.
	OutcomeBlock Outcome = "block"

	// OutcomeHalt rejects the action because a halt-mode bucket is
	// exhausted or the ledger is down under a fail-closed policy.
	OutcomeHalt Outcome = "halt"
)

// ExhaustMode selects what happens when spending reaches the red threshold.
type ExhaustMode string

const (
	// ExhaustHalt stops execution deterministically at exhaustion.
	ExhaustHalt ExhaustMode = "halt"

	// ExhaustReportOnly records exhaustion but never blocks execution.
	ExhaustReportOnly ExhaustMode = "report_only"
)

// FailPolicy selects the outcome when the ledger store is unavailable.
type FailPolicy string

const (
	// FailClosed halts the action when the ledger cannot be reached.
	FailClosed FailPolicy = "closed"

	// FailOpen proceeds with a visibility event when the ledger cannot
	// be reached.
	FailOpen FailPolicy = "open"
)

// Request describes one guarded action to evaluate.
type Request struct {
	// Profile is the name of the profile to evaluate against.
	Profile string

	// Context is the budget identity the action draws on.
	Context Context

	// Action is the caller-defined action class, matched against the
	// zone policy's allowed and blocked action sets. May be empty.
	Action string

	// Cost is the cost of the action in cycles, supplied by the caller
	// and never inferred.
	Cost float64
}

// BucketStatus is the per-bucket view carried on a Decision.
type BucketStatus struct {
	// Name is the bucket name from the profile.
	Name string `json:"name"`

	// Key is the resolved ledger key.
	Key string `json:"key"`

	// Remaining is the balance after the evaluation's burn (or the
	// untouched balance when the burn was rejected).
	Remaining float64 `json:"remaining"`

	// Limit is the bucket's current nominal limit.
	Limit float64 `json:"limit"`

	// SpentFraction is (limit - remaining) / limit, clamped at zero.
	SpentFraction float64 `json:"spent_fraction"`

	// Zone is the bucket's zone at Remaining.
	Zone Zone `json:"zone"`
}

// Decision is the sole output of one evaluation. It is immutable once
// returned; callers always receive a Decision for ledger-side failures,
// never a bare error.
type Decision struct {
	// Outcome is the enforcement verdict.
	Outcome Outcome

	// Zone is the worst zone across the profile's buckets.
	Zone Zone

	// Buckets holds per-bucket balances and zones.
	Buckets []BucketStatus

	// Degrade carries the zone policy's degradation directives
	// (model tier, context window, caller-defined knobs).
	Degrade map[string]string

	// ThrottleDelay is the wait the engine applied before returning.
	ThrottleDelay time.Duration

	// RetryMax caps caller-level retries of the guarded action under
	// this zone. Zero means no retries.
	RetryMax int

	// FallbackStrategy is the zone policy's fallback hint, carried on
	// red report-only decisions.
	FallbackStrategy string

	// Reason explains block and halt outcomes.
	Reason string

	// Cause is the underlying typed error for halt and block outcomes
	// and for fail-open/fail-closed ledger failures.
	Cause error
}

// Allowed reports whether the guarded action may run.
func (d *Decision) Allowed() bool {
	switch d.Outcome {
	case OutcomeProceed, OutcomeDegrade, OutcomeThrottle:
		return true
	}
	return false
}

// Error types surfaced by the engine.
var (
	// ErrBudgetExhausted is the designed outcome of a red, halt-mode
	// bucket: not a defect, but a deterministic stop signal.
	ErrBudgetExhausted = errors.New("budget exhausted")

	// ErrPolicyViolation is returned when the requested action class is
	// blocked by the current zone's policy.
	ErrPolicyViolation = errors.New("action blocked by zone policy")

	// ErrProfileNotFound is returned for an unknown profile name.
	ErrProfileNotFound = errors.New("profile not found")
)

// FieldError is a validation error for one profile or template field.
type FieldError struct {
	// Field is the dotted path to the offending field
	// (e.g. "profiles.agents.buckets.execution.thresholds").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigError aggregates configuration errors found at load time.
// The engine refuses to serve evaluations for an invalid profile, so
// these surface immediately and loudly.
type ConfigError struct {
	// Errors contains all configuration errors found.
	Errors []FieldError
}

// Error returns a formatted string containing all configuration errors.
func (e ConfigError) Error() string {
	if len(e.Errors) == 0 {
		return "invalid configuration"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("invalid configuration: %s", e.Errors[0].Error())
	}
	msg := fmt.Sprintf("invalid configuration with %d errors:", len(e.Errors))
	for _, err := range e.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

func configErrorf(field, format string, args ...interface{}) error {
	return ConfigError{Errors: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}}}
}
