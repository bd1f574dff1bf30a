package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var topupFlags struct {
	profile string
	bucket  string
	key     string
	amount  float64
}

var topupCmd = &cobra.Command{
	Use:   "topup",
	Short: "Credit a budget bucket",
	Long: `Apply an out-of-band credit to one bucket. Both the remaining balance
and the limit grow by the amount, so the spent fraction drops and the
bucket can move back toward green.

The scope key is the expanded template part of the ledger key: an
execution id for execution-scoped buckets, a group id for group-scoped
buckets, or the literal "global".

Examples:
  # Restore a team's shared budget
  janus topup --profile agents --bucket per_team --key team-7 --amount 500

  # Credit the global bucket
  janus topup --profile agents --bucket fleet --key global --amount 10000`,
	RunE: runTopup,
}

func init() {
	rootCmd.AddCommand(topupCmd)

	topupCmd.Flags().StringVar(&topupFlags.profile, "profile", "", "profile name (required)")
	topupCmd.Flags().StringVar(&topupFlags.bucket, "bucket", "", "bucket name (required)")
	topupCmd.Flags().StringVar(&topupFlags.key, "key", "", "scope key (required)")
	topupCmd.Flags().Float64Var(&topupFlags.amount, "amount", 0, "cycles to credit (required, positive)")
	topupCmd.MarkFlagRequired("profile")
	topupCmd.MarkFlagRequired("bucket")
	topupCmd.MarkFlagRequired("key")
	topupCmd.MarkFlagRequired("amount")
}

func runTopup(cmd *cobra.Command, args []string) error {
	if topupFlags.amount <= 0 {
		return fmt.Errorf("amount must be positive, got %g", topupFlags.amount)
	}

	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.cleanup()

	entry, err := a.engine.Topup(context.Background(),
		topupFlags.profile, topupFlags.bucket, topupFlags.key, topupFlags.amount)
	if err != nil {
		return err
	}

	fmt.Printf("credited %g to %s\n", topupFlags.amount, entry.Key)
	fmt.Printf("  remaining: %g\n", entry.Remaining)
	fmt.Printf("  limit:     %g\n", entry.Limit)
	fmt.Printf("  spent:     %.1f%%\n", entry.SpentFraction()*100)
	return nil
}
