package metrics

import (
	"testing"
	"time"

	"mercator-hq/janus/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() config.MetricsConfig {
	return config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "budget",
	}
}

func TestNewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_RecordEvaluation(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordEvaluation("agents", "proceed", "green", 5*time.Millisecond)
	collector.RecordEvaluation("agents", "proceed", "green", 7*time.Millisecond)
	collector.RecordEvaluation("agents", "halt", "red", 2*time.Millisecond)

	proceed := testutil.ToFloat64(collector.evaluations.WithLabelValues("agents", "proceed", "green"))
	if proceed != 2 {
		t.Errorf("Expected 2 proceed evaluations, got %v", proceed)
	}
	halt := testutil.ToFloat64(collector.evaluations.WithLabelValues("agents", "halt", "red"))
	if halt != 1 {
		t.Errorf("Expected 1 halt evaluation, got %v", halt)
	}
}

func TestCollector_RecordBurn(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordBurn("agents", 12.5)
	collector.RecordBurn("agents", 7.5)
	collector.RecordBurn("agents", 0) // zero-cost probes are not recorded

	burned := testutil.ToFloat64(collector.burnTotal.WithLabelValues("agents"))
	if burned != 20 {
		t.Errorf("Expected 20 cycles burned, got %v", burned)
	}
}

func TestCollector_BucketGauges(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.SetBucketGauges("agents:per_exec:exec-42", 60, 0.4)
	collector.SetBucketGauges("agents:per_exec:exec-42", 30, 0.7)

	remaining := testutil.ToFloat64(collector.bucketRemaining.WithLabelValues("agents:per_exec:exec-42"))
	if remaining != 30 {
		t.Errorf("Expected gauge 30, got %v", remaining)
	}
	spent := testutil.ToFloat64(collector.bucketSpent.WithLabelValues("agents:per_exec:exec-42"))
	if spent != 0.7 {
		t.Errorf("Expected spent fraction 0.7, got %v", spent)
	}
}

func TestCollector_NilIsSafe(t *testing.T) {
	var collector *Collector

	// None of these may panic.
	collector.RecordEvaluation("agents", "proceed", "green", time.Millisecond)
	collector.RecordBurn("agents", 1)
	collector.RecordZoneTransition("agents", "yellow")
	collector.RecordTopup("agents")
	collector.RecordLedgerError("snapshot", "closed")
	collector.SetBucketGauges("k", 1, 0.5)

	if collector.Registry() != nil {
		t.Error("Expected nil registry from nil collector")
	}
}

func TestCollector_DisabledRecordsNothing(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordEvaluation("agents", "proceed", "green", time.Millisecond)

	count := testutil.ToFloat64(collector.evaluations.WithLabelValues("agents", "proceed", "green"))
	if count != 0 {
		t.Errorf("Expected no recording when disabled, got %v", count)
	}
}
