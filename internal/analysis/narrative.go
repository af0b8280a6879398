package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/orrery/internal/ai"
	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/metrics"
	"github.com/starford/orrery/internal/models"
)

// NarrativeBranches proposes plot branches from a free-text decision point,
// independent of any analyzed checkpoint. Branches without a name are dropped.
func (a *Analyzer) NarrativeBranches(ctx context.Context, decision string, sc models.StoryContext) ([]models.NarrativeBranch, error) {
	if strings.TrimSpace(decision) == "" {
		return nil, fmt.Errorf("analysis: narrative branches: empty decision: %w", apperr.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()

	text, err := a.gen.Generate(ctx, ai.Request{Prompt: narrativePrompt(decision, sc)})
	if err != nil {
		metrics.StageResults.WithLabelValues(StageNarrative, "failed").Inc()
		return nil, fmt.Errorf("analysis: narrative branches: %w", err)
	}
	var reply struct {
		Branches []struct {
			Name         string `json:"name"`
			Consequence  string `json:"consequence"`
			NextDecision string `json:"nextDecision"`
		} `json:"branches"`
	}
	if err := ai.Decode(text, &reply); err != nil {
		metrics.StageResults.WithLabelValues(StageNarrative, "failed").Inc()
		return nil, fmt.Errorf("analysis: narrative branches: %w", err)
	}

	out := make([]models.NarrativeBranch, 0, len(reply.Branches))
	for _, b := range reply.Branches {
		if strings.TrimSpace(b.Name) == "" {
			continue
		}
		out = append(out, models.NarrativeBranch{
			ID:           a.newID(),
			Name:         b.Name,
			Consequence:  b.Consequence,
			NextDecision: b.NextDecision,
			Status:       models.BranchUnexplored,
		})
	}
	a.record(StageNarrative, len(out))
	return out, nil
}
