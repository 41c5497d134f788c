// Package notify bridges goal and deliverable events to chat platforms
// (Slack, Discord). Delivery is best-effort: failures are logged, never
// returned to the reconcile path.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/goalpost/goalpost/internal/models"
)

// Severity levels for events.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
)

// Event is a formatted notification ready for any adapter.
type Event struct {
	Title    string
	Body     string
	Severity string
	Fields   []Field
}

// Field is a key-value pair displayed with an event.
type Field struct {
	Name  string
	Value string
}

// Adapter is implemented per chat platform.
type Adapter interface {
	// Send delivers the event to the platform.
	Send(ctx context.Context, ev Event) error
	// Name identifies the adapter in logs.
	Name() string
}

// Notifier fans events out to all configured adapters.
type Notifier struct {
	adapters []Adapter
}

// New creates a Notifier over the given adapters. A Notifier with no
// adapters is valid and drops all events.
func New(adapters ...Adapter) *Notifier {
	return &Notifier{adapters: adapters}
}

// GoalCompleted announces a goal crossing its target.
func (n *Notifier) GoalCompleted(ctx context.Context, goal *models.Goal) {
	n.send(ctx, Event{
		Title:    fmt.Sprintf("Goal completed: %s", goal.Description),
		Body:     fmt.Sprintf("Reached %.0f of %.0f (%s).", goal.CurrentValue, goal.TargetValue, goal.MetricType),
		Severity: SeveritySuccess,
		Fields: []Field{
			{Name: "Workspace", Value: goal.WorkspaceID.String()},
			{Name: "Goal", Value: goal.ID.String()},
		},
	})
}

// ProgressAdvanced announces a progress change on an active goal.
func (n *Notifier) ProgressAdvanced(ctx context.Context, goal *models.Goal, previous float64) {
	n.send(ctx, Event{
		Title:    fmt.Sprintf("Goal progress: %s", goal.Description),
		Body:     fmt.Sprintf("%.0f → %.0f of %.0f.", previous, goal.CurrentValue, goal.TargetValue),
		Severity: SeverityInfo,
		Fields: []Field{
			{Name: "Goal", Value: goal.ID.String()},
		},
	})
}

// OrphanedDeliverables warns about deliverables with no goal attribution.
func (n *Notifier) OrphanedDeliverables(ctx context.Context, workspaceID string, count int) {
	n.send(ctx, Event{
		Title:    "Orphaned deliverables detected",
		Body:     fmt.Sprintf("%d deliverables in workspace %s have no goal attribution.", count, workspaceID),
		Severity: SeverityWarning,
	})
}

func (n *Notifier) send(ctx context.Context, ev Event) {
	for _, a := range n.adapters {
		if err := a.Send(ctx, ev); err != nil {
			log.Printf("notify: %s send failed: %v", a.Name(), err)
		}
	}
}
