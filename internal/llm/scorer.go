package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/goalpost/goalpost/internal/models"
	"github.com/goalpost/goalpost/internal/progress"
)

const scorerSystemPrompt = `You evaluate how much a completed task contributes to a workspace goal.
Respond with a JSON object:
{"semantic_match": bool, "contribution": float 0.0-1.0, "confidence": float 0.0-1.0, "reasoning": string}
semantic_match is false when the task is unrelated to the goal; in that case contribution must be 0.0.`

// Scorer asks a model to rate a task's contribution to a goal. Any provider
// failure or malformed response falls open to a zero heuristic contribution
// so a sync is never blocked on the AI path.
type Scorer struct {
	client Client
}

// NewScorer creates a Scorer backed by the given client.
func NewScorer(client Client) *Scorer {
	return &Scorer{client: client}
}

type scorerVerdict struct {
	SemanticMatch bool    `json:"semantic_match"`
	Contribution  float64 `json:"contribution"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// ScoreContribution rates how much the task advances the goal.
func (s *Scorer) ScoreContribution(ctx context.Context, goal *models.Goal, task *models.Task) progress.Contribution {
	user := fmt.Sprintf("Goal: %s (metric: %s, progress %.0f/%.0f)\nTask: %s\nTask result: %s",
		goal.Description, goal.MetricType, goal.CurrentValue, goal.TargetValue,
		task.Title, truncate(task.Result, 2000))

	content, err := s.client.ChatJSON(ctx, []Message{
		{Role: "system", Content: scorerSystemPrompt},
		{Role: "user", Content: user},
	})
	if err != nil {
		log.Printf("llm: contribution scoring failed for goal %s task %s: %v", goal.ID, task.ID, err)
		return progress.HeuristicContribution()
	}

	var verdict scorerVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		log.Printf("llm: malformed contribution verdict for goal %s: %v", goal.ID, err)
		return progress.HeuristicContribution()
	}

	if !verdict.SemanticMatch {
		verdict.Contribution = 0
	}
	return progress.Contribution{
		Value:         verdict.Contribution,
		SemanticMatch: verdict.SemanticMatch,
		Confidence:    verdict.Confidence,
		Source:        progress.ModelScored,
	}.Clamp()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
