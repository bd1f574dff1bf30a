package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/janus/pkg/budget"
	"mercator-hq/janus/pkg/cli"
)

var inspectFlags struct {
	profile string
	context string
	format  string
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show current bucket balances for a context",
	Long: `Resolve a profile's buckets against a budget context and print the
current balance, spent fraction, and zone of each. Nothing is burned.

The context is the wire form produced by Encode: comma-separated
field=value pairs.

Examples:
  # Balances for a team's buckets
  janus inspect --profile agents --context "group_id=team-7"

  # Full context, JSON output
  janus inspect --profile agents \
    --context "execution_id=exec-42,group_id=team-7" --format json`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFlags.profile, "profile", "", "profile name (required)")
	inspectCmd.Flags().StringVar(&inspectFlags.context, "context", "", "budget context as field=value pairs (required)")
	inspectCmd.Flags().StringVar(&inspectFlags.format, "format", "text", "output format: text, json")
	inspectCmd.MarkFlagRequired("profile")
	inspectCmd.MarkFlagRequired("context")
}

func runInspect(cmd *cobra.Command, args []string) error {
	bc, err := budget.ParseContext(inspectFlags.context)
	if err != nil {
		return err
	}

	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.cleanup()

	statuses, err := a.engine.Inspect(context.Background(), inspectFlags.profile, bc)
	if err != nil {
		return err
	}

	format := cli.OutputFormat(inspectFlags.format)
	if format == cli.FormatJSON {
		formatter, err := cli.NewFormatter(format)
		if err != nil {
			return err
		}
		return formatter.FormatTo(os.Stdout, statuses)
	}
	if format != cli.FormatText {
		return fmt.Errorf("unknown format %q", inspectFlags.format)
	}

	for _, s := range statuses {
		fmt.Printf("%s\n", s.Key)
		fmt.Printf("  remaining: %g of %g\n", s.Remaining, s.Limit)
		fmt.Printf("  spent:     %.1f%%\n", s.SpentFraction*100)
		fmt.Printf("  zone:      %s\n", s.Zone)
	}
	return nil
}
