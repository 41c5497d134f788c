package main

import (
	"context"
	"fmt"

	"github.com/goalpost/goalpost/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newGoalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Inspect and sync workspace goals",
	}

	cmd.AddCommand(newGoalListCmd())
	cmd.AddCommand(newGoalShowCmd())
	cmd.AddCommand(newGoalSyncCmd())
	return cmd
}

func newGoalListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals across workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoalList(cmd, configPath, status)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "goalpost.yaml", "path to Goalpost config file")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active|completed|paused)")
	return cmd
}

func runGoalList(cmd *cobra.Command, configPath, status string) error {
	deps, err := buildServices(configPath)
	if err != nil {
		return err
	}

	q := deps.db.Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var goals []models.Goal
	if err := q.Find(&goals).Error; err != nil {
		return fmt.Errorf("list goals: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(goals) == 0 {
		fmt.Fprintln(out, "No goals found.")
		return nil
	}
	for _, g := range goals {
		fmt.Fprintf(out, "%s  [%s]  %.0f/%.0f (%.0f%%)  %s\n",
			g.ID, g.Status, g.CurrentValue, g.TargetValue, g.ProgressPercent(), g.Description)
	}
	return nil
}

func newGoalShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <goal-id>",
		Short: "Show a goal with its progress history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoalShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "goalpost.yaml", "path to Goalpost config file")
	return cmd
}

func runGoalShow(cmd *cobra.Command, configPath, idArg string) error {
	goalID, err := uuid.Parse(idArg)
	if err != nil {
		return fmt.Errorf("invalid goal id %q", idArg)
	}

	deps, err := buildServices(configPath)
	if err != nil {
		return err
	}

	var goal models.Goal
	if err := deps.db.First(&goal, "id = ?", goalID).Error; err != nil {
		return fmt.Errorf("goal %s: %w", goalID, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Goal    %s\n", goal.ID)
	fmt.Fprintf(out, "Status  %s\n", goal.Status)
	fmt.Fprintf(out, "Metric  %s\n", goal.MetricType)
	fmt.Fprintf(out, "Value   %.0f/%.0f (%.0f%%)\n", goal.CurrentValue, goal.TargetValue, goal.ProgressPercent())
	fmt.Fprintf(out, "Created %s\n", goal.CreatedAt.Format("2006-01-02 15:04"))
	if goal.CompletedAt != nil {
		fmt.Fprintf(out, "Done    %s\n", goal.CompletedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "\n%s\n", goal.Description)

	var entries []models.ProgressEntry
	if err := deps.db.Where("goal_id = ?", goalID).Order("created_at ASC").Find(&entries).Error; err != nil {
		return fmt.Errorf("progress history: %w", err)
	}
	if len(entries) > 0 {
		fmt.Fprintln(out, "\nProgress history:")
		for _, e := range entries {
			fmt.Fprintf(out, "  %s  %.0f → %.0f (%d completed, %s)\n",
				e.CreatedAt.Format("2006-01-02 15:04"), e.PreviousValue, e.NewValue, e.CompletedCount, e.Source)
		}
	}
	return nil
}

func newGoalSyncCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sync <goal-id>",
		Short: "Reconcile a goal's progress from its deliverables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoalSync(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "goalpost.yaml", "path to Goalpost config file")
	return cmd
}

func runGoalSync(cmd *cobra.Command, configPath, idArg string) error {
	goalID, err := uuid.Parse(idArg)
	if err != nil {
		return fmt.Errorf("invalid goal id %q", idArg)
	}

	deps, err := buildServices(configPath)
	if err != nil {
		return err
	}

	res := deps.svc.SyncGoal(context.Background(), goalID)
	if res.Err != nil {
		return res.Err
	}

	out := cmd.OutOrStdout()
	switch {
	case res.Skipped:
		fmt.Fprintf(out, "Skipped: %s\n", res.SkipReason)
	case res.GoalCompleted:
		fmt.Fprintf(out, "Updated %.0f → %.0f, goal completed\n", res.PreviousValue, res.NewValue)
	default:
		fmt.Fprintf(out, "Updated %.0f → %.0f (%d completed deliverables)\n",
			res.PreviousValue, res.NewValue, res.CompletedCount)
	}
	return nil
}
