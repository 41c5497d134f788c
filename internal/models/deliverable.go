package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deliverable statuses.
const (
	DeliverableDraft      = "draft"
	DeliverableInProgress = "in_progress"
	DeliverableCompleted  = "completed"
	DeliverableFailed     = "failed"
)

// Deliverable is a finished work artifact, optionally attributed to a goal.
// A nil GoalID means the deliverable is orphaned; the sweeper reports these.
type Deliverable struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	WorkspaceID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	GoalID       *uuid.UUID `gorm:"type:uuid;index"`
	Title        string     `gorm:"size:256;not null"`
	Status       string     `gorm:"size:16;default:draft;index"`
	Content      string     `gorm:"type:text"`
	QualityScore float64    `gorm:"default:0"`
	// Aggregate marks the summary deliverable assembled when a goal completes.
	Aggregate   bool `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

func (d *Deliverable) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
