package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/triage/internal/config"
	"github.com/danielolaszy/triage/internal/logging"
	"github.com/danielolaszy/triage/internal/schedule"
	"github.com/danielolaszy/triage/internal/worker"
)

// workerCmd runs the bot as a long-lived service: the configured search
// profiles poll for tickets and feed them to the worker pool until the
// process receives SIGINT or SIGTERM.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the triage bot as a long-lived worker",
	Long: `Run the triage bot as a long-lived worker.

The configured search profiles poll JIRA on their intervals; every matching
ticket is processed through the triage pipeline with bounded concurrency.
The rules configuration file is watched and hot-reloaded; in-flight tickets
finish under the configuration they started with.

Example:
  triage worker --config triage.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}

		store, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}
		store.Watch()

		snap := store.Snapshot()
		if len(snap.Profiles) == 0 {
			return fmt.Errorf("no search profiles configured in %s", configPath)
		}

		proc, jiraClient, err := buildProcessor(store)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logging.Info("starting worker",
			"profiles", len(snap.Profiles),
			"concurrency", snap.Processing.WorkerConcurrency,
			"config_version", snap.Version)

		keys := make(chan string, 64)
		poller := schedule.NewPoller(jiraClient, store)
		go poller.Run(ctx, keys)

		pool := worker.NewPool(proc, snap.Processing.WorkerConcurrency)
		pool.Run(ctx, keys)

		logging.Info("worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
