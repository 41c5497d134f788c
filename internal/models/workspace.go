package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workspace statuses.
const (
	WorkspaceActive   = "active"
	WorkspaceArchived = "archived"
)

// Workspace is the top-level container for goals, tasks, and deliverables.
type Workspace struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:128;not null;uniqueIndex"`
	Status    string    `gorm:"size:16;default:active;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Goals        []Goal        `gorm:"foreignKey:WorkspaceID"`
	Tasks        []Task        `gorm:"foreignKey:WorkspaceID"`
	Deliverables []Deliverable `gorm:"foreignKey:WorkspaceID"`
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
