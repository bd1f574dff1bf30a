// Janus is a budget governance engine for autonomous operations.
//
// It gates guarded actions against depletable risk budgets, tightening
// enforcement progressively as budgets drain:
//   - Declarative profiles: buckets, zone thresholds, per-zone policies
//   - Atomic multi-bucket authorize-and-burn (memory, SQLite, or Redis)
//   - Green/yellow/orange/red zone classification with worst-zone-wins
//   - Out-of-band topups that deterministically restore capacity
//
// Usage:
//
//	# Validate configuration and profiles
//	janus validate --config /path/to/config.yaml
//
//	# Credit a bucket
//	janus topup --profile agents --bucket per_team --key team-7 --amount 500
//
//	# Show current balances for a context
//	janus inspect --profile agents --context "group_id=team-7"
//
//	# Run the scheduled snapshot reporter with a /metrics endpoint
//	janus report --listen :9090
//
//	# Show version information
//	janus version
package main

func main() {
	Execute()
}
