package db

import (
	"fmt"

	"github.com/goalpost/goalpost/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Workspace{},
		&models.Goal{},
		&models.Deliverable{},
		&models.Task{},
		&models.ProgressEntry{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedWorkspace upserts a workspace by name and returns the stored row.
func SeedWorkspace(gdb *gorm.DB, name string) (*models.Workspace, error) {
	ws := models.Workspace{Name: name, Status: models.WorkspaceActive}
	result := gdb.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"status"}),
	}).Create(&ws)
	if result.Error != nil {
		return nil, fmt.Errorf("db: seed workspace %q: %w", name, result.Error)
	}
	var stored models.Workspace
	if err := gdb.Where("name = ?", name).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("db: load workspace %q: %w", name, err)
	}
	return &stored, nil
}
