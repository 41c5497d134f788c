package main

import (
	"fmt"

	"github.com/goalpost/goalpost/internal/config"
	"github.com/goalpost/goalpost/internal/db"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBMigrateCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var (
		configPath string
		workspace  string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the Goalpost schema",
		Long:  "Runs GORM auto-migration for all tables and optionally seeds a workspace.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath, workspace)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "goalpost.yaml", "path to Goalpost config file")
	cmd.Flags().StringVar(&workspace, "workspace", "", "seed a workspace with this name")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath, workspace string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Connected to Postgres")

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if workspace != "" {
		ws, err := db.SeedWorkspace(gormDB, workspace)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Workspace %q ready (id=%s)\n", ws.Name, ws.ID)
	}

	fmt.Fprintln(out, "\nGoalpost database ready.")
	return nil
}
