// Package progress computes goal progress from deliverable snapshots.
package progress

import (
	"github.com/goalpost/goalpost/internal/models"
)

// Compute returns the new current value for a goal given a snapshot of its
// deliverables: the number of completed deliverables, capped at the target.
// With no deliverables at all the current value is kept, so a reconcile can
// never regress a goal.
func Compute(goal *models.Goal, deliverables []models.Deliverable) float64 {
	if len(deliverables) == 0 {
		return goal.CurrentValue
	}
	completed := CountCompleted(deliverables)
	value := float64(completed)
	if value > goal.TargetValue {
		value = goal.TargetValue
	}
	if value < goal.CurrentValue {
		return goal.CurrentValue
	}
	return value
}

// CountCompleted returns the number of deliverables in completed status.
// Aggregate summaries are excluded so the final assembly step does not
// count toward the goal it summarizes.
func CountCompleted(deliverables []models.Deliverable) int {
	n := 0
	for _, d := range deliverables {
		if d.Status == models.DeliverableCompleted && !d.Aggregate {
			n++
		}
	}
	return n
}
