package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "janus",
	Short: "Janus - budget governance engine for autonomous operations",
	Long: `Janus gates guarded actions against depletable risk budgets.

Every guarded action burns cycles from one or more budget buckets. As a
bucket's spent fraction crosses configured thresholds, its zone moves
from green through yellow and orange to red, and the zone's policy
tightens enforcement: degradation directives, throttling, action
blocking, and finally a hard halt that only an explicit topup reverses.

Balances live in a pluggable ledger (in-memory, SQLite, or Redis), so a
budget can be shared across processes in a distributed call chain.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
