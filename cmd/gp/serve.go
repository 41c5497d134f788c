package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goalpost/goalpost/internal/server"
	"github.com/goalpost/goalpost/internal/sweeper"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		noSweeper  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Goalpost API server",
		Long:  "Serves the HTTP API and, unless disabled, runs the background reconciliation sweeper.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, noSweeper)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "goalpost.yaml", "path to Goalpost config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().BoolVar(&noSweeper, "no-sweeper", false, "disable the background reconciliation sweep")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, noSweeper bool) error {
	deps, err := buildServices(configPath)
	if err != nil {
		return err
	}
	if port <= 0 {
		port = deps.cfg.Server.Port
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

	if !noSweeper {
		go func() {
			err := sweeper.Run(ctx, sweeper.Opts{
				DB:       deps.db,
				Service:  deps.svc,
				Notifier: deps.notifier,
				Schedule: deps.cfg.Sweeper.Schedule,
				Interval: deps.cfg.Sweeper.Interval,
				Out:      cmd.OutOrStdout(),
			})
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "sweeper: %v\n", err)
			}
		}()
	}

	return server.Start(ctx, server.StartOpts{
		DB:        deps.db,
		Service:   deps.svc,
		Optimizer: deps.optimizer,
		Port:      port,
		Out:       cmd.OutOrStdout(),
	})
}
