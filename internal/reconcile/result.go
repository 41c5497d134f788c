package reconcile

import (
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors for the reconcile path. Database failures are wrapped
// with ErrDatabase so callers can tell a retryable store problem from a
// terminal one without string matching.
var (
	// ErrNotFound means the referenced goal does not exist.
	ErrNotFound = errors.New("reconcile: goal not found")
	// ErrDatabase wraps any store failure during a sync.
	ErrDatabase = errors.New("reconcile: database error")
)

// Result reports the outcome of one sync attempt. A sync either updates
// the goal, skips with a reason, or fails with Err set; it is never
// retried within the same invocation.
type Result struct {
	GoalID        uuid.UUID `json:"goal_id"`
	Updated       bool      `json:"updated"`
	PreviousValue float64   `json:"previous_value"`
	NewValue      float64   `json:"new_value"`
	// CompletedCount is the completed-deliverable count observed in the
	// snapshot the sync computed from.
	CompletedCount int `json:"completed_count"`
	// GoalCompleted is true only on the call that crossed the target.
	GoalCompleted bool   `json:"goal_completed"`
	Skipped       bool   `json:"skipped,omitempty"`
	SkipReason    string `json:"skip_reason,omitempty"`
	Err           error  `json:"-"`
}

// skipped builds a no-op Result.
func skipped(goalID uuid.UUID, reason string) Result {
	return Result{GoalID: goalID, Skipped: true, SkipReason: reason}
}

// failed builds an error Result.
func failed(goalID uuid.UUID, err error) Result {
	return Result{GoalID: goalID, Err: err}
}
