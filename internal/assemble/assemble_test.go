package assemble

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/goalpost/goalpost/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB creates an in-memory SQLite database with all required tables.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Goal{}, &models.Deliverable{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func seedCompletedGoal(t *testing.T, gdb *gorm.DB, parts int) *models.Goal {
	t.Helper()
	now := time.Now()
	goal := models.Goal{
		WorkspaceID:  uuid.New(),
		Description:  "launch newsletter",
		CurrentValue: float64(parts),
		TargetValue:  float64(parts),
		Status:       models.GoalCompleted,
		CompletedAt:  &now,
	}
	if err := gdb.Create(&goal).Error; err != nil {
		t.Fatalf("seed goal: %v", err)
	}
	for i := 0; i < parts; i++ {
		d := models.Deliverable{
			WorkspaceID:  goal.WorkspaceID,
			GoalID:       &goal.ID,
			Title:        "issue draft",
			Status:       models.DeliverableCompleted,
			Content:      "body text",
			QualityScore: 0.8,
			CompletedAt:  &now,
		}
		if err := gdb.Create(&d).Error; err != nil {
			t.Fatalf("seed deliverable: %v", err)
		}
	}
	return &goal
}

func TestCheckGoal_CreatesAggregate(t *testing.T) {
	gdb := testDB(t)
	goal := seedCompletedGoal(t, gdb, 3)

	agg, err := New(gdb).CheckGoal(context.Background(), goal.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if agg == nil {
		t.Fatal("expected aggregate")
	}
	if !agg.Aggregate {
		t.Error("Aggregate flag not set")
	}
	if agg.Status != models.DeliverableCompleted {
		t.Errorf("status = %q", agg.Status)
	}
	if math.Abs(agg.QualityScore-0.8) > 1e-9 {
		t.Errorf("QualityScore = %v, want 0.8", agg.QualityScore)
	}
	if !strings.Contains(agg.Content, "3 completed deliverables") {
		t.Errorf("content = %q", agg.Content)
	}
}

func TestCheckGoal_Idempotent(t *testing.T) {
	gdb := testDB(t)
	goal := seedCompletedGoal(t, gdb, 2)
	a := New(gdb)

	first, err := a.CheckGoal(context.Background(), goal.ID)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	second, err := a.CheckGoal(context.Background(), goal.ID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if first.ID != second.ID {
		t.Error("second check created a new aggregate")
	}

	var count int64
	gdb.Model(&models.Deliverable{}).Where("goal_id = ? AND aggregate = ?", goal.ID, true).Count(&count)
	if count != 1 {
		t.Errorf("aggregate count = %d, want 1", count)
	}
}

func TestCheckGoal_ActiveGoalIsNoop(t *testing.T) {
	gdb := testDB(t)
	goal := models.Goal{
		WorkspaceID: uuid.New(),
		Description: "still in flight",
		TargetValue: 10,
		Status:      models.GoalActive,
	}
	if err := gdb.Create(&goal).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	agg, err := New(gdb).CheckGoal(context.Background(), goal.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if agg != nil {
		t.Error("active goal should not be assembled")
	}
}

func TestCheckGoal_NoDeliverablesIsNoop(t *testing.T) {
	gdb := testDB(t)
	goal := seedCompletedGoal(t, gdb, 0)

	agg, err := New(gdb).CheckGoal(context.Background(), goal.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if agg != nil {
		t.Error("goal with no deliverables should not produce an aggregate")
	}
}

func TestCheckGoal_MissingGoal(t *testing.T) {
	gdb := testDB(t)
	if _, err := New(gdb).CheckGoal(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for missing goal")
	}
}
