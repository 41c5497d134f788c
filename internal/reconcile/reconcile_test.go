package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/goalpost/goalpost/internal/lease"
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
	if err := gdb.AutoMigrate(
		&models.Workspace{},
		&models.Goal{},
		&models.Deliverable{},
		&models.Task{},
		&models.ProgressEntry{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func testService(t *testing.T, gdb *gorm.DB, opts ...Option) *Service {
	t.Helper()
	svc, err := New(gdb, lease.NewMemoryStore(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedGoal(t *testing.T, gdb *gorm.DB, target float64) *models.Goal {
	t.Helper()
	ws := models.Workspace{Name: "test-" + uuid.NewString(), Status: models.WorkspaceActive}
	if err := gdb.Create(&ws).Error; err != nil {
		t.Fatalf("seed workspace: %v", err)
	}
	goal := models.Goal{
		WorkspaceID: ws.ID,
		Description: "ship the launch campaign",
		MetricType:  "deliverables",
		TargetValue: target,
		Status:      models.GoalActive,
	}
	if err := gdb.Create(&goal).Error; err != nil {
		t.Fatalf("seed goal: %v", err)
	}
	return &goal
}

func seedCompletedDeliverables(t *testing.T, gdb *gorm.DB, goal *models.Goal, n int) {
	t.Helper()
	now := time.Now()
	for i := 0; i < n; i++ {
		d := models.Deliverable{
			WorkspaceID: goal.WorkspaceID,
			GoalID:      &goal.ID,
			Title:       "deliverable",
			Status:      models.DeliverableCompleted,
			CompletedAt: &now,
		}
		if err := gdb.Create(&d).Error; err != nil {
			t.Fatalf("seed deliverable: %v", err)
		}
	}
}

func reload(t *testing.T, gdb *gorm.DB, id uuid.UUID) *models.Goal {
	t.Helper()
	var goal models.Goal
	if err := gdb.First(&goal, "id = ?", id).Error; err != nil {
		t.Fatalf("reload goal: %v", err)
	}
	return &goal
}

func TestSyncGoal_PartialProgress(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 50)
	seedCompletedDeliverables(t, gdb, goal, 2)

	res := svc.SyncGoal(context.Background(), goal.ID)
	if res.Err != nil {
		t.Fatalf("sync: %v", res.Err)
	}
	if !res.Updated {
		t.Fatal("expected update")
	}
	if res.NewValue != 2 {
		t.Errorf("NewValue = %v, want 2", res.NewValue)
	}
	if res.GoalCompleted {
		t.Error("goal should not be completed")
	}

	stored := reload(t, gdb, goal.ID)
	if stored.CurrentValue != 2 {
		t.Errorf("CurrentValue = %v, want 2", stored.CurrentValue)
	}
	if stored.Status != models.GoalActive {
		t.Errorf("Status = %q, want active", stored.Status)
	}
	if stored.CompletedAt != nil {
		t.Error("CompletedAt should be nil")
	}
}

func TestSyncGoal_CrossesTarget(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 50)
	seedCompletedDeliverables(t, gdb, goal, 50)

	res := svc.SyncGoal(context.Background(), goal.ID)
	if res.Err != nil {
		t.Fatalf("sync: %v", res.Err)
	}
	if !res.GoalCompleted {
		t.Fatal("expected goal completion")
	}
	if res.NewValue != 50 {
		t.Errorf("NewValue = %v, want 50", res.NewValue)
	}

	stored := reload(t, gdb, goal.ID)
	if stored.Status != models.GoalCompleted {
		t.Errorf("Status = %q, want completed", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("CompletedAt must be set")
	}
}

func TestSyncGoal_CapsAtTarget(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 3)
	seedCompletedDeliverables(t, gdb, goal, 10)

	res := svc.SyncGoal(context.Background(), goal.ID)
	if res.Err != nil {
		t.Fatalf("sync: %v", res.Err)
	}
	if res.NewValue != 3 {
		t.Errorf("NewValue = %v, want 3", res.NewValue)
	}
	if !res.GoalCompleted {
		t.Error("expected completion at capped target")
	}
}

func TestSyncGoal_Idempotent(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 50)
	seedCompletedDeliverables(t, gdb, goal, 2)

	first := svc.SyncGoal(context.Background(), goal.ID)
	if first.Err != nil {
		t.Fatalf("first sync: %v", first.Err)
	}
	second := svc.SyncGoal(context.Background(), goal.ID)
	if second.Err != nil {
		t.Fatalf("second sync: %v", second.Err)
	}

	if first.NewValue != second.NewValue {
		t.Errorf("values differ: %v vs %v", first.NewValue, second.NewValue)
	}
	if !second.Skipped {
		t.Error("second sync with no new completions should skip")
	}

	var entries int64
	gdb.Model(&models.ProgressEntry{}).Where("goal_id = ?", goal.ID).Count(&entries)
	if entries != 1 {
		t.Errorf("progress entries = %d, want 1", entries)
	}
}

func TestSyncGoal_NeverRegresses(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 50)
	seedCompletedDeliverables(t, gdb, goal, 4)

	if res := svc.SyncGoal(context.Background(), goal.ID); res.Err != nil {
		t.Fatalf("sync: %v", res.Err)
	}

	// A deliverable flipping back out of completed must not lower the goal.
	gdb.Model(&models.Deliverable{}).
		Where("goal_id = ?", goal.ID).
		Limit(1).
		Update("status", models.DeliverableFailed)

	res := svc.SyncGoal(context.Background(), goal.ID)
	if res.Err != nil {
		t.Fatalf("resync: %v", res.Err)
	}
	stored := reload(t, gdb, goal.ID)
	if stored.CurrentValue != 4 {
		t.Errorf("CurrentValue = %v, want 4 (no regression)", stored.CurrentValue)
	}
}

func TestSyncGoal_CompletedIsTerminal(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 2)
	seedCompletedDeliverables(t, gdb, goal, 2)

	if res := svc.SyncGoal(context.Background(), goal.ID); !res.GoalCompleted {
		t.Fatal("expected completion")
	}

	seedCompletedDeliverables(t, gdb, goal, 5)
	res := svc.SyncGoal(context.Background(), goal.ID)
	if !res.Skipped || res.SkipReason != "goal already completed" {
		t.Errorf("result = %+v, want terminal skip", res)
	}
	stored := reload(t, gdb, goal.ID)
	if stored.CurrentValue != 2 {
		t.Errorf("CurrentValue = %v, want 2", stored.CurrentValue)
	}
}

func TestSyncGoal_PausedSkips(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 10)
	gdb.Model(goal).Update("status", models.GoalPaused)
	seedCompletedDeliverables(t, gdb, goal, 3)

	res := svc.SyncGoal(context.Background(), goal.ID)
	if !res.Skipped || res.SkipReason != "goal is paused" {
		t.Errorf("result = %+v, want paused skip", res)
	}
}

func TestSyncGoal_NotFound(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)

	res := svc.SyncGoal(context.Background(), uuid.New())
	if res.Err == nil {
		t.Fatal("expected error")
	}
	if res.Err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", res.Err)
	}
}

func TestSyncGoal_WritesProgressEntry(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 50)
	seedCompletedDeliverables(t, gdb, goal, 2)

	if res := svc.SyncGoal(context.Background(), goal.ID); res.Err != nil {
		t.Fatalf("sync: %v", res.Err)
	}

	var entry models.ProgressEntry
	if err := gdb.First(&entry, "goal_id = ?", goal.ID).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if entry.PreviousValue != 0 || entry.NewValue != 2 || entry.CompletedCount != 2 {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Source != models.SourceHeuristic {
		t.Errorf("Source = %q, want heuristic", entry.Source)
	}
}

func TestSyncGoal_CompletionCreatesAggregate(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 2)
	seedCompletedDeliverables(t, gdb, goal, 2)

	if res := svc.SyncGoal(context.Background(), goal.ID); !res.GoalCompleted {
		t.Fatal("expected completion")
	}

	var agg models.Deliverable
	if err := gdb.Where("goal_id = ? AND aggregate = ?", goal.ID, true).First(&agg).Error; err != nil {
		t.Fatalf("aggregate not created: %v", err)
	}
	if agg.Status != models.DeliverableCompleted {
		t.Errorf("aggregate status = %q", agg.Status)
	}
}

func TestOnDeliverableCompleted(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 50)
	seedCompletedDeliverables(t, gdb, goal, 1)

	var d models.Deliverable
	if err := gdb.First(&d, "goal_id = ?", goal.ID).Error; err != nil {
		t.Fatalf("load deliverable: %v", err)
	}

	res := svc.OnDeliverableCompleted(context.Background(), d.ID)
	if res.Err != nil {
		t.Fatalf("sync: %v", res.Err)
	}
	if res.NewValue != 1 {
		t.Errorf("NewValue = %v, want 1", res.NewValue)
	}
}

func TestOnDeliverableCompleted_OrphanSkips(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 50)

	d := models.Deliverable{
		WorkspaceID: goal.WorkspaceID,
		Title:       "orphan",
		Status:      models.DeliverableCompleted,
	}
	if err := gdb.Create(&d).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	res := svc.OnDeliverableCompleted(context.Background(), d.ID)
	if !res.Skipped || res.SkipReason != "deliverable is orphaned" {
		t.Errorf("result = %+v, want orphan skip", res)
	}
}

func TestOnTaskCompleted_NoGoalSkips(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)
	goal := seedGoal(t, gdb, 50)

	task := models.Task{
		WorkspaceID: goal.WorkspaceID,
		Title:       "untracked work",
		Status:      models.TaskCompleted,
	}
	if err := gdb.Create(&task).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	res := svc.OnTaskCompleted(context.Background(), task.ID)
	if !res.Skipped || res.SkipReason != "task has no goal attribution" {
		t.Errorf("result = %+v, want no-goal skip", res)
	}
}

func TestOnTaskCompleted_DeduplicatesInFlightEvents(t *testing.T) {
	gdb := testDB(t)
	leases := lease.NewMemoryStore()
	svc, err := New(gdb, leases)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	goal := seedGoal(t, gdb, 50)

	task := models.Task{
		WorkspaceID: goal.WorkspaceID,
		GoalID:      &goal.ID,
		Title:       "write campaign brief",
		Status:      models.TaskCompleted,
	}
	if err := gdb.Create(&task).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Simulate an event already in flight.
	key := eventKey(task.WorkspaceID, goal.ID, task.ID)
	if ok, _ := leases.Acquire(context.Background(), key, time.Minute); !ok {
		t.Fatal("pre-acquire failed")
	}

	res := svc.OnTaskCompleted(context.Background(), task.ID)
	if !res.Skipped || res.SkipReason != "event already in flight" {
		t.Errorf("result = %+v, want in-flight skip", res)
	}

	// After the first event releases, the sync proceeds.
	leases.Release(context.Background(), key)
	res = svc.OnTaskCompleted(context.Background(), task.ID)
	if res.Err != nil {
		t.Fatalf("sync: %v", res.Err)
	}
	if held, _ := leases.Held(context.Background(), key); held {
		t.Error("lease should be released after sync")
	}
}

func TestOnTaskCompleted_TaskNotFound(t *testing.T) {
	gdb := testDB(t)
	svc := testService(t, gdb)

	res := svc.OnTaskCompleted(context.Background(), uuid.New())
	if res.Err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", res.Err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, lease.NewMemoryStore()); err == nil {
		t.Error("expected error for nil db")
	}
	if _, err := New(testDB(t), nil); err == nil {
		t.Error("expected error for nil lease store")
	}
}
