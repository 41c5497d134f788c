package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goalpost/goalpost/internal/sweeper"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	var (
		configPath string
		once       bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the reconciliation sweeper",
		Long:  "Re-syncs every active goal from its deliverable snapshot. With --once, runs a single pass and exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, configPath, once)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "goalpost.yaml", "path to Goalpost config file")
	cmd.Flags().BoolVar(&once, "once", false, "run a single sweep pass and exit")
	return cmd
}

func runSweep(cmd *cobra.Command, configPath string, once bool) error {
	deps, err := buildServices(configPath)
	if err != nil {
		return err
	}

	if once {
		stats, err := sweeper.Pass(context.Background(), deps.db, deps.svc, deps.notifier)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sweep: %d synced, %d updated, %d completed, %d orphaned, %d errors\n",
			stats.GoalsSynced, stats.GoalsUpdated, stats.GoalsCompleted, stats.Orphaned, stats.Errors)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return sweeper.Run(ctx, sweeper.Opts{
		DB:       deps.db,
		Service:  deps.svc,
		Notifier: deps.notifier,
		Schedule: deps.cfg.Sweeper.Schedule,
		Interval: deps.cfg.Sweeper.Interval,
		Out:      cmd.OutOrStdout(),
	})
}
