package models

import (
	"time"

	"github.com/google/uuid"
)

// Progress sources.
const (
	SourceHeuristic = "heuristic"
	SourceModel     = "model"
)

// ProgressEntry is an append-only audit row written on every reconcile
// that changes a goal's current value.
type ProgressEntry struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	GoalID         uuid.UUID `gorm:"type:uuid;not null;index"`
	PreviousValue  float64
	NewValue       float64
	CompletedCount int
	Source         string `gorm:"size:16;default:heuristic"`
	Note           string `gorm:"type:text"`
	CreatedAt      time.Time
}
