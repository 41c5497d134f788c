// Package reconcile implements the goal-progress sync service: on task or
// deliverable completion it recomputes a goal's current value from its
// completed deliverables inside a transaction, flips the goal to completed
// at target, and triggers aggregation and notifications.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/goalpost/goalpost/internal/assemble"
	"github.com/goalpost/goalpost/internal/lease"
	"github.com/goalpost/goalpost/internal/llm"
	"github.com/goalpost/goalpost/internal/models"
	"github.com/goalpost/goalpost/internal/notify"
	"github.com/goalpost/goalpost/internal/progress"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// eventLeaseTTL bounds how long an in-flight completion event suppresses
// duplicates of itself.
const eventLeaseTTL = 60 * time.Second

// Service coordinates goal-progress reconciliation.
type Service struct {
	db        *gorm.DB
	leases    lease.Store
	assembler *assemble.Assembler
	notifier  *notify.Notifier
	scorer    *llm.Scorer
	aiEnabled bool
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier wires chat notifications for progress and completion events.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithScorer enables the model-scored contribution path for task events.
func WithScorer(sc *llm.Scorer) Option {
	return func(s *Service) {
		s.scorer = sc
		s.aiEnabled = sc != nil
	}
}

// New creates a reconcile Service. leases deduplicates concurrent
// completion events; pass a lease.MemoryStore for single-process runs.
func New(gdb *gorm.DB, leases lease.Store, opts ...Option) (*Service, error) {
	if gdb == nil {
		return nil, fmt.Errorf("reconcile: db is required")
	}
	if leases == nil {
		return nil, fmt.Errorf("reconcile: lease store is required")
	}
	s := &Service{
		db:        gdb,
		leases:    leases,
		assembler: assemble.New(gdb),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// eventKey identifies one completion event for deduplication.
func eventKey(workspaceID, goalID, taskID uuid.UUID) string {
	return fmt.Sprintf("%s_%s_%s", workspaceID, goalID, taskID)
}

// OnTaskCompleted reconciles the goal attributed to a completed task.
// Duplicate events for the same workspace/goal/task are skipped while the
// first is in flight. Tasks with no goal attribution are skipped.
func (s *Service) OnTaskCompleted(ctx context.Context, taskID uuid.UUID) Result {
	var task models.Task
	if err := s.db.WithContext(ctx).First(&task, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("reconcile: task %s not found", taskID)
			return failed(uuid.Nil, ErrNotFound)
		}
		return failed(uuid.Nil, fmt.Errorf("%w: load task %s: %v", ErrDatabase, taskID, err))
	}
	if task.GoalID == nil {
		return skipped(uuid.Nil, "task has no goal attribution")
	}
	goalID := *task.GoalID

	key := eventKey(task.WorkspaceID, goalID, task.ID)
	ok, err := s.leases.Acquire(ctx, key, eventLeaseTTL)
	if err != nil {
		// A broken lease store must not block progress updates.
		log.Printf("reconcile: lease acquire for %s: %v", key, err)
	} else if !ok {
		return skipped(goalID, "event already in flight")
	} else {
		defer func() {
			if err := s.leases.Release(context.WithoutCancel(ctx), key); err != nil {
				log.Printf("reconcile: lease release for %s: %v", key, err)
			}
		}()
	}

	var note string
	source := models.SourceHeuristic
	if s.aiEnabled {
		var goal models.Goal
		if err := s.db.WithContext(ctx).First(&goal, "id = ?", goalID).Error; err == nil {
			c := s.scorer.ScoreContribution(ctx, &goal, &task)
			if c.Source == progress.ModelScored {
				source = models.SourceModel
				note = fmt.Sprintf("task %s contribution %.2f (match=%t, confidence=%.2f)",
					task.ID, c.Value, c.SemanticMatch, c.Confidence)
			}
		}
	}

	return s.syncGoal(ctx, goalID, source, note)
}

// OnDeliverableCompleted reconciles the goal linked to a completed
// deliverable. Orphaned deliverables are skipped.
func (s *Service) OnDeliverableCompleted(ctx context.Context, deliverableID uuid.UUID) Result {
	var d models.Deliverable
	if err := s.db.WithContext(ctx).First(&d, "id = ?", deliverableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("reconcile: deliverable %s not found", deliverableID)
			return failed(uuid.Nil, ErrNotFound)
		}
		return failed(uuid.Nil, fmt.Errorf("%w: load deliverable %s: %v", ErrDatabase, deliverableID, err))
	}
	if d.GoalID == nil {
		return skipped(uuid.Nil, "deliverable is orphaned")
	}
	return s.syncGoal(ctx, *d.GoalID, models.SourceHeuristic, "")
}

// SyncGoal recomputes progress for one goal from its current deliverable
// snapshot. Safe to call repeatedly: with no new completions the value is
// unchanged.
func (s *Service) SyncGoal(ctx context.Context, goalID uuid.UUID) Result {
	return s.syncGoal(ctx, goalID, models.SourceHeuristic, "")
}

// syncGoal performs the transactional read-compute-write. The transaction
// closes the race between two completions reconciling the same goal: both
// serialize on the row update instead of last-write-wins.
func (s *Service) syncGoal(ctx context.Context, goalID uuid.UUID, source, note string) Result {
	res := Result{GoalID: goalID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var goal models.Goal
		if err := tx.First(&goal, "id = ?", goalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: load goal %s: %v", ErrDatabase, goalID, err)
		}

		res.PreviousValue = goal.CurrentValue

		switch goal.Status {
		case models.GoalCompleted:
			// Completed is terminal; report the stored value unchanged.
			res.NewValue = goal.CurrentValue
			res.Skipped = true
			res.SkipReason = "goal already completed"
			return nil
		case models.GoalPaused:
			res.NewValue = goal.CurrentValue
			res.Skipped = true
			res.SkipReason = "goal is paused"
			return nil
		}

		var deliverables []models.Deliverable
		if err := tx.Where("goal_id = ?", goalID).Find(&deliverables).Error; err != nil {
			return fmt.Errorf("%w: load deliverables for %s: %v", ErrDatabase, goalID, err)
		}

		newValue := progress.Compute(&goal, deliverables)
		res.NewValue = newValue
		res.CompletedCount = progress.CountCompleted(deliverables)

		if newValue == goal.CurrentValue {
			res.Skipped = true
			res.SkipReason = "no progress change"
			return nil
		}

		updates := map[string]interface{}{
			"current_value": newValue,
			"updated_at":    time.Now(),
		}
		if newValue >= goal.TargetValue {
			now := time.Now()
			updates["status"] = models.GoalCompleted
			updates["completed_at"] = now
			res.GoalCompleted = true
		}
		if err := tx.Model(&models.Goal{}).Where("id = ?", goalID).Updates(updates).Error; err != nil {
			return fmt.Errorf("%w: update goal %s: %v", ErrDatabase, goalID, err)
		}

		entry := models.ProgressEntry{
			GoalID:         goalID,
			PreviousValue:  res.PreviousValue,
			NewValue:       newValue,
			CompletedCount: res.CompletedCount,
			Source:         source,
			Note:           note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("%w: record progress for %s: %v", ErrDatabase, goalID, err)
		}
		return nil
	})
	if err != nil {
		log.Printf("reconcile: sync goal %s: %v", goalID, err)
		res.Err = err
		return res
	}

	if res.Updated = !res.Skipped; !res.Updated {
		return res
	}

	// Side effects run outside the transaction; they are best-effort and
	// the sweeper re-runs the aggregation check on its next pass.
	var goal models.Goal
	if err := s.db.WithContext(ctx).First(&goal, "id = ?", goalID).Error; err == nil {
		if res.GoalCompleted {
			if _, err := s.assembler.CheckGoal(ctx, goalID); err != nil {
				log.Printf("reconcile: aggregation check for %s: %v", goalID, err)
			}
			if s.notifier != nil {
				s.notifier.GoalCompleted(ctx, &goal)
			}
		} else if s.notifier != nil {
			s.notifier.ProgressAdvanced(ctx, &goal, res.PreviousValue)
		}
	}

	return res
}
