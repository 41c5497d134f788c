package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Goal statuses.
const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalPaused    = "paused"
)

// Goal is a workspace-level measurable target. CurrentValue is advanced by
// the reconciler as deliverables complete; once it reaches TargetValue the
// goal flips to completed and CompletedAt is set. Completed is terminal.
type Goal struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Description  string    `gorm:"type:text"`
	MetricType   string    `gorm:"size:32;default:deliverables"`
	CurrentValue float64   `gorm:"default:0"`
	TargetValue  float64   `gorm:"not null"`
	Status       string    `gorm:"size:16;default:active;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time

	Deliverables []Deliverable   `gorm:"foreignKey:GoalID"`
	Tasks        []Task          `gorm:"foreignKey:GoalID"`
	Progress     []ProgressEntry `gorm:"foreignKey:GoalID"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// ProgressPercent returns completion as a 0–100 percentage.
func (g *Goal) ProgressPercent() float64 {
	if g.TargetValue <= 0 {
		return 0
	}
	pct := g.CurrentValue / g.TargetValue * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
