package server

import (
	"fmt"

	"github.com/goalpost/goalpost/internal/models"
	"gorm.io/gorm"
)

// Usage holds workspace-wide row counts for the /api/usage endpoint.
type Usage struct {
	Workspaces       int64            `json:"workspaces"`
	GoalsByStatus    map[string]int64 `json:"goals_by_status"`
	Tasks            int64            `json:"tasks"`
	Deliverables     int64            `json:"deliverables"`
	OrphanedDelivers int64            `json:"orphaned_deliverables"`
	ProgressEntries  int64            `json:"progress_entries"`
}

// UsageCounts aggregates table counts for the usage endpoint.
func UsageCounts(gdb *gorm.DB) (*Usage, error) {
	u := &Usage{GoalsByStatus: make(map[string]int64)}

	if err := gdb.Model(&models.Workspace{}).Count(&u.Workspaces).Error; err != nil {
		return nil, fmt.Errorf("server: count workspaces: %w", err)
	}

	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := gdb.Model(&models.Goal{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("server: count goals: %w", err)
	}
	for _, r := range rows {
		u.GoalsByStatus[r.Status] = r.Count
	}

	if err := gdb.Model(&models.Task{}).Count(&u.Tasks).Error; err != nil {
		return nil, fmt.Errorf("server: count tasks: %w", err)
	}
	if err := gdb.Model(&models.Deliverable{}).Count(&u.Deliverables).Error; err != nil {
		return nil, fmt.Errorf("server: count deliverables: %w", err)
	}
	if err := gdb.Model(&models.Deliverable{}).
		Where("goal_id IS NULL").
		Count(&u.OrphanedDelivers).Error; err != nil {
		return nil, fmt.Errorf("server: count orphaned deliverables: %w", err)
	}
	if err := gdb.Model(&models.ProgressEntry{}).Count(&u.ProgressEntries).Error; err != nil {
		return nil, fmt.Errorf("server: count progress entries: %w", err)
	}
	return u, nil
}
