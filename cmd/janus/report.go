package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/janus/pkg/budget"
	"mercator-hq/janus/pkg/cli"
)

var reportFlags struct {
	listen string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run the scheduled snapshot reporter",
	Long: `Run the snapshot reporter in the foreground. On the configured cron
schedule it walks the ledger, emits snapshot events for every live
bucket, and publishes remaining/spent-fraction gauges. When metrics are
enabled the gauges are served on /metrics.

The reporter runs until SIGINT or SIGTERM.

Examples:
  # Report on the schedule from the config file
  janus report --config /etc/janus/config.yaml

  # Serve metrics on a non-default port
  janus report --listen :9091`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlags.listen, "listen", ":9090", "metrics listen address")
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.cleanup()

	if a.cfg.Reporter.Schedule == "" {
		return fmt.Errorf("config %q does not set reporter.schedule", cfgFile)
	}

	ctx := cli.SetupSignalHandler()

	reporter := budget.NewReporter(a.engine, a.cfg.Reporter.Schedule)
	if err := reporter.Start(ctx); err != nil {
		return err
	}
	defer reporter.Stop()

	var server *http.Server
	if a.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		server = &http.Server{Addr: reportFlags.listen, Handler: mux}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Printf("metrics server error: %v\n", err)
			}
		}()
		fmt.Printf("serving metrics on %s/metrics\n", reportFlags.listen)
	}

	fmt.Printf("reporting on schedule %q, press Ctrl+C to stop\n", a.cfg.Reporter.Schedule)
	<-ctx.Done()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}
	return nil
}
