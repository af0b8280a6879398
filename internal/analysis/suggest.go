package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/orrery/internal/ai"
	"github.com/starford/orrery/internal/apperr"
)

// LinkCandidate is a note the collaborator may suggest linking to.
type LinkCandidate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// LinkSuggestion proposes a wiki-link to an existing note.
type LinkSuggestion struct {
	ID           string  `json:"id"`
	TargetNoteID string  `json:"targetNoteId"`
	Title        string  `json:"title"`
	Reason       string  `json:"reason"`
	Confidence   float64 `json:"confidence"`
}

// SuggestTags proposes tags for content. Blank and duplicate tags are dropped.
func (a *Analyzer) SuggestTags(ctx context.Context, content string, existing []string) []string {
	var tags []string
	if !a.call(ctx, StageTags, tagPrompt(content, existing), &tags) {
		return []string{}
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(tag, "#")))
		if _, dup := seen[tag]; tag == "" || dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	a.record(StageTags, len(out))
	return out
}

// SuggestLinks proposes up to three links among the first 20 candidates.
// Suggestions whose title matches no candidate are dropped.
func (a *Analyzer) SuggestLinks(ctx context.Context, content string, candidates []LinkCandidate) []LinkSuggestion {
	if len(candidates) == 0 {
		return []LinkSuggestion{}
	}
	if len(candidates) > linkCandidates {
		candidates = candidates[:linkCandidates]
	}
	var reply struct {
		Suggestions []struct {
			NoteTitle  string  `json:"noteTitle"`
			Reason     string  `json:"reason"`
			Confidence float64 `json:"confidence"`
		} `json:"suggestions"`
	}
	if !a.call(ctx, StageLinks, linkPrompt(content, candidates), &reply) {
		return []LinkSuggestion{}
	}

	out := make([]LinkSuggestion, 0, len(reply.Suggestions))
	for _, s := range reply.Suggestions {
		for _, c := range candidates {
			if strings.EqualFold(c.Title, s.NoteTitle) {
				out = append(out, LinkSuggestion{
					ID:           a.newID(),
					TargetNoteID: c.ID,
					Title:        c.Title,
					Reason:       s.Reason,
					Confidence:   clamp(s.Confidence, 0, 1),
				})
				break
			}
		}
	}
	a.record(StageLinks, len(out))
	return out
}

// AssistAction is a writing-assistant operation.
type AssistAction string

const (
	AssistEnhance   AssistAction = "enhance"
	AssistExpand    AssistAction = "expand"
	AssistSummarize AssistAction = "summarize"
	AssistContinue  AssistAction = "continue"
)

// Valid reports whether a is a known action.
func (a AssistAction) Valid() bool {
	switch a {
	case AssistEnhance, AssistExpand, AssistSummarize, AssistContinue:
		return true
	}
	return false
}

// Assist runs a writing-assistant action and returns the plain-text reply.
// hint is optional surrounding context or style notes.
func (a *Analyzer) Assist(ctx context.Context, action AssistAction, text, hint string) (string, error) {
	if !action.Valid() {
		return "", fmt.Errorf("analysis: assist: unknown action %q: %w", action, apperr.ErrInvalidInput)
	}
	ctx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()
	out, err := a.gen.Generate(ctx, ai.Request{Prompt: assistPrompt(action, text, hint)})
	if err != nil {
		return "", fmt.Errorf("analysis: assist %s: %w", action, err)
	}
	return strings.TrimSpace(out), nil
}
