package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goalpost/goalpost/internal/models"
	"github.com/google/uuid"
)

// recordingAdapter captures sent events.
type recordingAdapter struct {
	events []Event
	err    error
}

func (r *recordingAdapter) Send(ctx context.Context, ev Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingAdapter) Name() string { return "recording" }

func testGoal() *models.Goal {
	return &models.Goal{
		ID:           uuid.New(),
		WorkspaceID:  uuid.New(),
		Description:  "publish launch posts",
		MetricType:   "deliverables",
		CurrentValue: 10,
		TargetValue:  10,
	}
}

func TestGoalCompleted_FansOut(t *testing.T) {
	a := &recordingAdapter{}
	b := &recordingAdapter{}
	n := New(a, b)

	n.GoalCompleted(context.Background(), testGoal())

	for _, rec := range []*recordingAdapter{a, b} {
		if len(rec.events) != 1 {
			t.Fatalf("events = %d, want 1", len(rec.events))
		}
		ev := rec.events[0]
		if ev.Severity != SeveritySuccess {
			t.Errorf("severity = %q, want success", ev.Severity)
		}
		if !strings.Contains(ev.Title, "publish launch posts") {
			t.Errorf("title = %q", ev.Title)
		}
	}
}

func TestProgressAdvanced(t *testing.T) {
	rec := &recordingAdapter{}
	n := New(rec)

	goal := testGoal()
	goal.CurrentValue = 4
	n.ProgressAdvanced(context.Background(), goal, 2)

	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rec.events))
	}
	if rec.events[0].Severity != SeverityInfo {
		t.Errorf("severity = %q, want info", rec.events[0].Severity)
	}
	if !strings.Contains(rec.events[0].Body, "2 → 4") {
		t.Errorf("body = %q", rec.events[0].Body)
	}
}

func TestSend_AdapterFailureDoesNotPropagate(t *testing.T) {
	failing := &recordingAdapter{err: errors.New("rate limited")}
	healthy := &recordingAdapter{}
	n := New(failing, healthy)

	// Must not panic or stop the fan-out.
	n.GoalCompleted(context.Background(), testGoal())

	if len(healthy.events) != 1 {
		t.Errorf("healthy adapter events = %d, want 1", len(healthy.events))
	}
}

func TestNotifier_NoAdapters(t *testing.T) {
	n := New()
	// Must be a safe no-op.
	n.GoalCompleted(context.Background(), testGoal())
	n.OrphanedDeliverables(context.Background(), "ws", 3)
}
