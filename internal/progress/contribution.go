package progress

// ContributionSource identifies how a task's contribution to a goal was
// determined.
type ContributionSource string

const (
	// Heuristic means the deterministic path produced the value, either by
	// choice or because the model path failed and fell open.
	Heuristic ContributionSource = "heuristic"
	// ModelScored means an AI provider rated the contribution.
	ModelScored ContributionSource = "model"
)

// Contribution is the result of scoring how much a completed task advances
// a goal. Callers inspect Source to decide how much to trust the value
// instead of having a fallback swallowed inside the scorer.
type Contribution struct {
	// Value is the contribution in the range 0.0–1.0.
	Value float64
	// SemanticMatch reports whether the model judged the task related to
	// the goal at all. Always false on the heuristic path.
	SemanticMatch bool
	// Confidence is the model's self-reported confidence, 0 on the
	// heuristic path.
	Confidence float64
	Source     ContributionSource
}

// HeuristicContribution returns the fail-open default: zero contribution,
// heuristic source.
func HeuristicContribution() Contribution {
	return Contribution{Value: 0, Source: Heuristic}
}

// Clamp bounds the contribution value to [0, 1].
func (c Contribution) Clamp() Contribution {
	if c.Value < 0 {
		c.Value = 0
	}
	if c.Value > 1 {
		c.Value = 1
	}
	return c
}
