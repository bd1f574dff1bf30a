package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/janus/pkg/budget"
	"mercator-hq/janus/pkg/config"
)

var validateFlags struct {
	profiles string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and budget profiles",
	Long: `Check the engine configuration and profile files without starting
anything. All problems are collected and reported together, so one run
surfaces every misconfigured field.

Examples:
  # Validate config and the profile file it references
  janus validate --config /etc/janus/config.yaml

  # Validate a profile file directly
  janus validate --profiles profiles.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.profiles, "profiles", "", "profile file to validate (skips config loading)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	profilePath := validateFlags.profiles

	if profilePath == "" {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("config %s: OK\n", cfgFile)
		profilePath = cfg.Profiles
		if profilePath == "" {
			fmt.Println("no profile file configured, nothing more to validate")
			return nil
		}
	}

	profiles, err := budget.LoadProfiles(profilePath)
	if err != nil {
		return err
	}

	fmt.Printf("profiles %s: OK\n", profilePath)
	for _, p := range profiles {
		fmt.Printf("  %s: %d bucket(s)\n", p.Name, len(p.Buckets))
		for _, b := range p.Buckets {
			fmt.Printf("    %-20s scope=%-10s limit=%g thresholds=%g/%g/%g\n",
				b.Name, b.Scope, b.Limit,
				b.Thresholds.Yellow, b.Thresholds.Orange, b.Thresholds.Red)
		}
	}
	return nil
}
