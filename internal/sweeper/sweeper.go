// Package sweeper runs the background reconciliation sweep: a safety net
// that re-syncs every active goal so progress missed by event-driven
// reconciles is eventually recorded.
package sweeper

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/goalpost/goalpost/internal/models"
	"github.com/goalpost/goalpost/internal/notify"
	"github.com/goalpost/goalpost/internal/reconcile"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// scheduleParser accepts the classic 5-field cron format
// (minute hour day-of-month month day-of-week).
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextSweepDelay returns how long to wait before the schedule's next fire
// time, or 0 when expr does not parse so Run falls back to Interval.
func nextSweepDelay(expr string) time.Duration {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return 0
	}
	if d := time.Until(sched.Next(time.Now())); d > 0 {
		return d
	}
	return 0
}

// Opts holds configuration for the sweeper daemon.
type Opts struct {
	DB       *gorm.DB
	Service  *reconcile.Service
	Notifier *notify.Notifier
	// Schedule is a 5-field cron expression pacing the sweep. Empty falls
	// back to Interval.
	Schedule string
	Interval time.Duration
	Out      io.Writer
}

// PassStats summarizes one sweep pass.
type PassStats struct {
	GoalsSynced    int
	GoalsUpdated   int
	GoalsCompleted int
	Orphaned       int
	Errors         int
}

// Run executes sweep passes until ctx is cancelled.
func Run(ctx context.Context, opts Opts) error {
	if opts.DB == nil {
		return fmt.Errorf("sweeper: db is required")
	}
	if opts.Service == nil {
		return fmt.Errorf("sweeper: reconcile service is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	fmt.Fprintf(opts.Out, "Sweeper starting (schedule=%q interval=%s)...\n", opts.Schedule, opts.Interval)

	for {
		stats, err := Pass(ctx, opts.DB, opts.Service, opts.Notifier)
		if err != nil {
			log.Printf("sweeper: pass failed: %v", err)
		} else {
			fmt.Fprintf(opts.Out, "Sweep: %d synced, %d updated, %d completed, %d orphaned, %d errors\n",
				stats.GoalsSynced, stats.GoalsUpdated, stats.GoalsCompleted, stats.Orphaned, stats.Errors)
		}

		wait := opts.Interval
		if opts.Schedule != "" {
			if d := nextSweepDelay(opts.Schedule); d > 0 {
				wait = d
			}
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(opts.Out, "Sweeper stopped.")
			return nil
		case <-time.After(wait):
		}
	}
}

// Pass runs one sweep over all active workspaces: re-syncs every active
// goal, re-checks aggregation for completed goals, and reports orphaned
// deliverables. Per-goal failures are counted, not fatal.
func Pass(ctx context.Context, gdb *gorm.DB, svc *reconcile.Service, notifier *notify.Notifier) (PassStats, error) {
	var stats PassStats

	var workspaces []models.Workspace
	if err := gdb.WithContext(ctx).
		Where("status = ?", models.WorkspaceActive).
		Find(&workspaces).Error; err != nil {
		return stats, fmt.Errorf("sweeper: load workspaces: %w", err)
	}

	for _, ws := range workspaces {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var goalIDs []uuid.UUID
		if err := gdb.WithContext(ctx).Model(&models.Goal{}).
			Where("workspace_id = ? AND status = ?", ws.ID, models.GoalActive).
			Pluck("id", &goalIDs).Error; err != nil {
			log.Printf("sweeper: load goals for workspace %s: %v", ws.ID, err)
			stats.Errors++
			continue
		}

		for _, goalID := range goalIDs {
			res := svc.SyncGoal(ctx, goalID)
			stats.GoalsSynced++
			switch {
			case res.Err != nil:
				stats.Errors++
			case res.Updated:
				stats.GoalsUpdated++
				if res.GoalCompleted {
					stats.GoalsCompleted++
				}
			}
		}

		orphaned, err := countOrphaned(ctx, gdb, ws.ID)
		if err != nil {
			log.Printf("sweeper: count orphaned for workspace %s: %v", ws.ID, err)
			stats.Errors++
			continue
		}
		if orphaned > 0 {
			stats.Orphaned += orphaned
			if notifier != nil {
				notifier.OrphanedDeliverables(ctx, ws.ID.String(), orphaned)
			}
		}
	}

	return stats, nil
}

// countOrphaned returns the number of completed deliverables in the
// workspace with no goal attribution.
func countOrphaned(ctx context.Context, gdb *gorm.DB, workspaceID uuid.UUID) (int, error) {
	var n int64
	if err := gdb.WithContext(ctx).Model(&models.Deliverable{}).
		Where("workspace_id = ? AND goal_id IS NULL AND status = ?", workspaceID, models.DeliverableCompleted).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
