// Package assemble builds the final summary deliverable for a completed goal.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goalpost/goalpost/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Assembler aggregates a completed goal's deliverables into one summary
// deliverable marked Aggregate. Running it twice for the same goal is a
// no-op: an existing aggregate short-circuits the check.
type Assembler struct {
	db *gorm.DB
}

// New creates an Assembler over the given database.
func New(gdb *gorm.DB) *Assembler {
	return &Assembler{db: gdb}
}

// CheckGoal assembles the aggregate deliverable for goalID if the goal is
// completed and no aggregate exists yet. Returns the aggregate (existing
// or new), or nil when the goal is not ready for assembly.
func (a *Assembler) CheckGoal(ctx context.Context, goalID uuid.UUID) (*models.Deliverable, error) {
	var goal models.Goal
	if err := a.db.WithContext(ctx).First(&goal, "id = ?", goalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("assemble: goal %s not found", goalID)
		}
		return nil, fmt.Errorf("assemble: load goal %s: %w", goalID, err)
	}
	if goal.Status != models.GoalCompleted {
		return nil, nil
	}

	var existing models.Deliverable
	err := a.db.WithContext(ctx).
		Where("goal_id = ? AND aggregate = ?", goalID, true).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("assemble: check existing aggregate for %s: %w", goalID, err)
	}

	var parts []models.Deliverable
	if err := a.db.WithContext(ctx).
		Where("goal_id = ? AND status = ? AND aggregate = ?", goalID, models.DeliverableCompleted, false).
		Order("completed_at ASC").
		Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("assemble: load deliverables for %s: %w", goalID, err)
	}
	if len(parts) == 0 {
		return nil, nil
	}

	now := time.Now()
	agg := models.Deliverable{
		WorkspaceID:  goal.WorkspaceID,
		GoalID:       &goal.ID,
		Title:        fmt.Sprintf("Final deliverable: %s", goal.Description),
		Status:       models.DeliverableCompleted,
		Content:      summarize(goal, parts),
		QualityScore: averageQuality(parts),
		Aggregate:    true,
		CompletedAt:  &now,
	}
	if err := a.db.WithContext(ctx).Create(&agg).Error; err != nil {
		return nil, fmt.Errorf("assemble: create aggregate for %s: %w", goalID, err)
	}
	return &agg, nil
}

// summarize concatenates the component deliverables into a single document.
func summarize(goal models.Goal, parts []models.Deliverable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", goal.Description)
	fmt.Fprintf(&b, "Assembled from %d completed deliverables.\n", len(parts))
	for _, p := range parts {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", p.Title, p.Content)
	}
	return b.String()
}

func averageQuality(parts []models.Deliverable) float64 {
	if len(parts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range parts {
		sum += p.QualityScore
	}
	return sum / float64(len(parts))
}
