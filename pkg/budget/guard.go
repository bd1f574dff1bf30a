package budget

import (
	"context"
	"fmt"
)

// Operation is a unit of guarded work. The decision carries the zone
// policy's degradation directives so the operation can adapt its own
// behavior (cheaper model, reduced depth, shorter output).
type Operation func(ctx context.Context, decision *Decision) error

// Guard wraps operations in a single evaluate-then-run call so call
// sites do not hand-roll the decision handling.
type Guard struct {
	engine *Engine
}

// NewGuard returns a Guard backed by the engine.
func NewGuard(engine *Engine) *Guard {
	return &Guard{engine: engine}
}

// Do evaluates the action against the profile and, if allowed, runs op.
//
// A halt decision returns ErrBudgetExhausted and a block decision
// returns ErrPolicyViolation, both wrapped with the decision's reason.
// When the operation itself fails and the zone policy grants retries,
// op is re-invoked up to RetryMax more times. Retries re-run only the
// operation; the evaluation's burn is committed once and is not billed
// again.
func (g *Guard) Do(ctx context.Context, profile string, bc Context, action string, cost float64, op Operation) (*Decision, error) {
	decision, err := g.engine.Evaluate(ctx, Request{
		Profile: profile,
		Context: bc,
		Action:  action,
		Cost:    cost,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed() {
		return decision, fmt.Errorf("%s: %w", decision.Reason, decision.Cause)
	}

	var opErr error
	for attempt := 0; attempt <= decision.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			return decision, err
		}
		if opErr = op(ctx, decision); opErr == nil {
			return decision, nil
		}
	}
	return decision, opErr
}
