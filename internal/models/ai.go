package models

import (
	"encoding/json"
	"time"
)

// AIAction names the assistant operation an AIResponse answers.
type AIAction string

const (
	AIActionEnhance          AIAction = "enhance"
	AIActionExpand           AIAction = "expand"
	AIActionSummarize        AIAction = "summarize"
	AIActionContinue         AIAction = "continue"
	AIActionGenerateBranches AIAction = "generateBranches"
	AIActionSuggestTags      AIAction = "suggestTags"
	AIActionSuggestLinks     AIAction = "suggestLinks"
	AIActionAnalyze          AIAction = "analyze"
	AIActionWhatIf           AIAction = "whatIf"
)

// AIResponse is one recorded assistant answer for a note. Content holds the
// text reply; structured replies (branches, suggestions, analyses) are kept
// verbatim in Payload.
type AIResponse struct {
	ID        string          `json:"id"`
	NoteID    string          `json:"noteId"`
	Action    AIAction        `json:"action"`
	Content   string          `json:"content"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// StoryContext steers narrative branch generation. Every field is optional.
type StoryContext struct {
	Genre          string   `json:"genre,omitempty"`
	Characters     []string `json:"characters,omitempty"`
	PreviousEvents []string `json:"previousEvents,omitempty"`
	WorldRules     string   `json:"worldRules,omitempty"`
}

// NarrativeBranch is a plot branch from a free-text decision point.
type NarrativeBranch struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Consequence  string `json:"consequence"`
	NextDecision string `json:"nextDecision,omitempty"`
	Status       string `json:"status"`
}

// BranchUnexplored is the status of a freshly generated narrative branch.
const BranchUnexplored = "unexplored"
