// Package validate decides when corrective-task generation should run for
// a goal: immediately, after a grace period, or not at all.
package validate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goalpost/goalpost/internal/lease"
	"github.com/goalpost/goalpost/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Decision is the optimizer's verdict for one goal.
type Decision string

const (
	// ProceedNormal runs corrective validation now.
	ProceedNormal Decision = "proceed_normal"
	// ApplyGracePeriod defers validation for the remaining grace window.
	ApplyGracePeriod Decision = "apply_grace_period"
	// Skip suppresses validation entirely for this pass.
	Skip Decision = "skip"
)

// Velocity thresholds on the completed/total task ratio for a goal.
const (
	velocityHealthy    = 0.7
	velocityAcceptable = 0.3
)

// ErrGoalNotFound means the referenced goal does not exist.
var ErrGoalNotFound = errors.New("validate: goal not found")

// Verdict carries the decision and its inputs. Nothing is persisted; the
// optimizer recomputes from goal and task history on every call.
type Verdict struct {
	GoalID   uuid.UUID `json:"goal_id"`
	Decision Decision  `json:"decision"`
	// Confidence is 1.0 for rule-based decisions and scales with sample
	// size for velocity-based ones.
	Confidence float64 `json:"confidence"`
	// Velocity is the completed/total task ratio for this goal, -1 when
	// the goal has no tasks.
	Velocity float64 `json:"velocity"`
	// GracePeriodRemainingHours is set when Decision is ApplyGracePeriod
	// because the goal is still inside its post-creation grace window.
	GracePeriodRemainingHours float64 `json:"grace_period_remaining_hours,omitempty"`
	Reason                    string  `json:"reason"`
}

// Optimizer gates corrective validation per goal.
type Optimizer struct {
	db          *gorm.DB
	leases      lease.Store
	gracePeriod time.Duration
	cooldown    time.Duration
	now         func() time.Time
}

// New creates an Optimizer. gracePeriod is the post-creation window during
// which validation is deferred; cooldown spaces corrective runs per goal.
func New(gdb *gorm.DB, leases lease.Store, gracePeriod, cooldown time.Duration) *Optimizer {
	return &Optimizer{
		db:          gdb,
		leases:      leases,
		gracePeriod: gracePeriod,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Evaluate returns the validation decision for one goal.
//
// Rules, in order: a goal at 0% progress always proceeds (it needs help,
// confidence 1.0); a goal younger than the grace period gets the remaining
// window; otherwise the per-goal task velocity decides.
func (o *Optimizer) Evaluate(ctx context.Context, goalID uuid.UUID) (*Verdict, error) {
	var goal models.Goal
	if err := o.db.WithContext(ctx).First(&goal, "id = ?", goalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, fmt.Errorf("validate: load goal %s: %w", goalID, err)
	}

	v := &Verdict{GoalID: goalID, Velocity: -1}

	if goal.ProgressPercent() == 0 {
		v.Decision = ProceedNormal
		v.Confidence = 1.0
		v.Reason = "goal at 0% progress, corrective validation always runs"
		return v, nil
	}

	age := o.now().Sub(goal.CreatedAt)
	if age < o.gracePeriod {
		remaining := o.gracePeriod - age
		v.Decision = ApplyGracePeriod
		v.Confidence = 1.0
		v.GracePeriodRemainingHours = remaining.Hours()
		v.Reason = fmt.Sprintf("goal created %s ago, inside %s grace period", age.Round(time.Minute), o.gracePeriod)
		return v, nil
	}

	velocity, total, err := o.goalVelocity(ctx, goalID)
	if err != nil {
		return nil, err
	}
	v.Velocity = velocity

	switch {
	case total == 0:
		v.Decision = ProceedNormal
		v.Confidence = 0.5
		v.Reason = "no tasks recorded for goal, validating to generate work"
	case velocity >= velocityHealthy:
		v.Decision = Skip
		v.Confidence = sampleConfidence(total)
		v.Reason = fmt.Sprintf("velocity %.2f healthy, skipping corrective validation", velocity)
	case velocity >= velocityAcceptable:
		v.Decision = ApplyGracePeriod
		v.Confidence = sampleConfidence(total)
		v.Reason = fmt.Sprintf("velocity %.2f acceptable, deferring validation", velocity)
	default:
		v.Decision = ProceedNormal
		v.Confidence = sampleConfidence(total)
		v.Reason = fmt.Sprintf("velocity %.2f low, corrective validation needed", velocity)
	}
	return v, nil
}

// AcquireCorrectiveSlot takes the per-goal corrective cooldown lease.
// Returns false while a previous corrective run is still cooling down.
func (o *Optimizer) AcquireCorrectiveSlot(ctx context.Context, goalID uuid.UUID) (bool, error) {
	return o.leases.Acquire(ctx, "corrective_"+goalID.String(), o.cooldown)
}

// goalVelocity computes the completed/total task ratio for this specific
// goal, not workspace-wide.
func (o *Optimizer) goalVelocity(ctx context.Context, goalID uuid.UUID) (float64, int64, error) {
	var total, completed int64
	if err := o.db.WithContext(ctx).Model(&models.Task{}).
		Where("goal_id = ?", goalID).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("validate: count tasks for %s: %w", goalID, err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	if err := o.db.WithContext(ctx).Model(&models.Task{}).
		Where("goal_id = ? AND status = ?", goalID, models.TaskCompleted).
		Count(&completed).Error; err != nil {
		return 0, 0, fmt.Errorf("validate: count completed tasks for %s: %w", goalID, err)
	}
	return float64(completed) / float64(total), total, nil
}

// sampleConfidence scales confidence with the number of observed tasks,
// capping at 0.9 for velocity-derived decisions.
func sampleConfidence(total int64) float64 {
	c := 0.5 + float64(total)*0.05
	if c > 0.9 {
		c = 0.9
	}
	return c
}
