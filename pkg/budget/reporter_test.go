package budget

import (
	"context"
	"testing"
)

func TestReporter_EmptyScheduleIsNoop(t *testing.T) {
	p := singleBucketProfile(100, Thresholds{Yellow: 0.5, Orange: 0.75, Red: 0.9}, defaultPolicies())
	reporter := NewReporter(newTestEngine(t, p, nil), "")

	if err := reporter.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	reporter.Stop()
}

func TestReporter_InvalidSchedule(t *testing.T) {
	p := singleBucketProfile(100, Thresholds{Yellow: 0.5, Orange: 0.75, Red: 0.9}, defaultPolicies())
	reporter := NewReporter(newTestEngine(t, p, nil), "not a cron expression")

	if err := reporter.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid cron expression")
	}
}

func TestReporter_StartStop(t *testing.T) {
	p := singleBucketProfile(100, Thresholds{Yellow: 0.5, Orange: 0.75, Red: 0.9}, defaultPolicies())
	reporter := NewReporter(newTestEngine(t, p, nil), "* * * * *")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := reporter.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	reporter.Stop()
	// Stop is idempotent.
	reporter.Stop()
}

func TestReporter_PublishesSnapshots(t *testing.T) {
	capture := &captureEmitter{}
	p := singleBucketProfile(100, Thresholds{Yellow: 0.3, Orange: 0.6, Red: 0.9}, defaultPolicies())
	engine := newTestEngine(t, p, capture)
	bc := NewExecutionContext("", "")

	if _, err := engine.Evaluate(context.Background(), execRequest(bc, 40)); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	reporter := NewReporter(engine, "* * * * *")
	reporter.report(context.Background())

	snapshots := capture.byType(EventSnapshot)
	if len(snapshots) != 1 {
		t.Fatalf("Expected 1 snapshot event, got %d", len(snapshots))
	}
	if snapshots[0].SpentFraction != 0.4 {
		t.Errorf("Expected spent fraction 0.4, got %v", snapshots[0].SpentFraction)
	}
	if snapshots[0].Zone != ZoneYellow {
		t.Errorf("Expected yellow zone in snapshot, got %s", snapshots[0].Zone)
	}
}
