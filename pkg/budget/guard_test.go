package budget

import (
	"context"
	"errors"
	"testing"
)

func TestGuard_RunsOperation(t *testing.T) {
	p := singleBucketProfile(100, Thresholds{Yellow: 0.5, Orange: 0.75, Red: 0.9}, defaultPolicies())
	guard := NewGuard(newTestEngine(t, p, nil))
	bc := NewExecutionContext("", "")

	ran := false
	d, err := guard.Do(context.Background(), "agents", bc, "", 10, func(ctx context.Context, d *Decision) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if !ran {
		t.Error("Expected operation to run")
	}
	if d.Outcome != OutcomeProceed {
		t.Errorf("Expected proceed, got %s", d.Outcome)
	}
}

func TestGuard_ExhaustedBudget(t *testing.T) {
	p := singleBucketProfile(10, Thresholds{Yellow: 0.5, Orange: 0.75, Red: 0.9}, defaultPolicies())
	guard := NewGuard(newTestEngine(t, p, nil))
	bc := NewExecutionContext("", "")

	_, err := guard.Do(context.Background(), "agents", bc, "", 50, func(ctx context.Context, d *Decision) error {
		t.Error("Operation must not run on a halt decision")
		return nil
	})
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Expected ErrBudgetExhausted, got %v", err)
	}
}

func TestGuard_BlockedAction(t *testing.T) {
	policies := defaultPolicies()
	policies["green"] = Policy{BlockedActions: []string{"external_call"}}
	p := singleBucketProfile(100, Thresholds{Yellow: 0.5, Orange: 0.75, Red: 0.9}, policies)
	guard := NewGuard(newTestEngine(t, p, nil))
	bc := NewExecutionContext("", "")

	_, err := guard.Do(context.Background(), "agents", bc, "external_call", 10, func(ctx context.Context, d *Decision) error {
		t.Error("Operation must not run on a block decision")
		return nil
	})
	if !errors.Is(err, ErrPolicyViolation) {
		t.Errorf("Expected ErrPolicyViolation, got %v", err)
	}
}

func TestGuard_RetriesWithoutRebilling(t *testing.T) {
	policies := defaultPolicies()
	policies["green"] = Policy{Retries: Retries{Max: 2}}
	p := singleBucketProfile(100, Thresholds{Yellow: 0.5, Orange: 0.75, Red: 0.9}, policies)
	engine := newTestEngine(t, p, nil)
	guard := NewGuard(engine)
	bc := NewExecutionContext("", "")

	attempts := 0
	transient := errors.New("transient")
	_, err := guard.Do(context.Background(), "agents", bc, "", 10, func(ctx context.Context, d *Decision) error {
		attempts++
		if attempts < 3 {
			return transient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}

	// Retries re-run the operation only; the cost is billed once.
	statuses, err := engine.Inspect(context.Background(), "agents", bc)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if statuses[0].Remaining != 90 {
		t.Errorf("Expected remaining 90 after a single billed burn, got %v", statuses[0].Remaining)
	}
}

func TestGuard_RetriesExhausted(t *testing.T) {
	policies := defaultPolicies()
	policies["green"] = Policy{Retries: Retries{Max: 1}}
	p := singleBucketProfile(100, Thresholds{Yellow: 0.5, Orange: 0.75, Red: 0.9}, policies)
	guard := NewGuard(newTestEngine(t, p, nil))
	bc := NewExecutionContext("", "")

	persistent := errors.New("persistent")
	attempts := 0
	_, err := guard.Do(context.Background(), "agents", bc, "", 10, func(ctx context.Context, d *Decision) error {
		attempts++
		return persistent
	})
	if !errors.Is(err, persistent) {
		t.Errorf("Expected the operation error, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts (1 + 1 retry), got %d", attempts)
	}
}
