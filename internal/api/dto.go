package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orrery/internal/analysis"
	"github.com/starford/orrery/internal/models"
)

const maxTitle = 500

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title   string          `json:"title" example:"Project Plan"`
	Content string          `json:"content" example:"See [[Timeline]] #planning"`
	Type    models.NoteType `json:"type" example:"note"`
}

// Validate checks the request.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.RuneLength(0, maxTitle)),
		validation.Field(&r.Type, validation.In(
			models.NoteTypeNote, models.NoteTypeStory, models.NoteTypeResearch, models.NoteTypeCanvas)),
	)
}

// UpdateNoteRequest is a partial update; omitted fields are unchanged.
type UpdateNoteRequest struct {
	models.NoteUpdate
}

// Validate checks the request.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r.NoteUpdate,
		validation.Field(&r.NoteUpdate.Title, validation.NilOrNotEmpty, validation.RuneLength(0, maxTitle)),
	)
}

// DraftRequest carries the latest editor content for debounced saving.
type DraftRequest struct {
	Content *string `json:"content"`
}

// Validate checks the request.
func (r DraftRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest struct {
	Name     string `json:"name" example:"Work"`
	ParentID string `json:"parentId,omitempty"`
}

// Validate checks the request.
func (r CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, 200)),
	)
}

// SettingsRequest replaces the stored preferences.
type SettingsRequest struct {
	models.Settings
}

// Validate checks the request.
func (r SettingsRequest) Validate() error {
	s := &r.Settings
	return validation.ValidateStruct(s,
		validation.Field(&s.Theme, validation.Required),
		validation.Field(&s.FontSize, validation.Required, validation.Min(8), validation.Max(48)),
		validation.Field(&s.EditorWidth, validation.Min(0)),
		validation.Field(&s.SidebarWidth, validation.Min(0)),
		validation.Field(&s.AIPanelWidth, validation.Min(0)),
		validation.Field(&s.LineHeight, validation.Min(0.0)),
	)
}

// SelectCheckpointRequest selects a checkpoint; an empty ID clears the selection.
type SelectCheckpointRequest struct {
	CheckpointID string `json:"checkpointId"`
}

// BranchesRequest asks for what-if branches of one checkpoint.
type BranchesRequest struct {
	CheckpointID string `json:"checkpointId"`
	Question     string `json:"question" example:"What if the deadline slipped?"`
}

// Validate checks the request.
func (r BranchesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CheckpointID, validation.Required),
		validation.Field(&r.Question, validation.Required, validation.RuneLength(1, 1000)),
	)
}

// AssistRequest asks for a writing-assistant rewrite.
type AssistRequest struct {
	Action  analysis.AssistAction `json:"action" example:"summarize"`
	Text    string                `json:"text"`
	Context string                `json:"context,omitempty"`
	NoteID  string                `json:"noteId,omitempty"`
}

// Validate checks the request.
func (r AssistRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Action, validation.Required, validation.In(
			analysis.AssistEnhance, analysis.AssistExpand, analysis.AssistSummarize, analysis.AssistContinue)),
		validation.Field(&r.Text, validation.Required),
	)
}

// AssistResponse is the assistant output.
type AssistResponse struct {
	Text string `json:"text"`
}

// NarrativeRequest asks for plot branches from a decision point.
type NarrativeRequest struct {
	Decision string              `json:"decision" example:"She opens the letter"`
	Story    models.StoryContext `json:"storyContext"`
	NoteID   string              `json:"noteId,omitempty"`
}

// Validate checks the request.
func (r NarrativeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Decision, validation.Required, validation.RuneLength(1, 2000)),
	)
}

// NarrativeResponse wraps generated plot branches.
type NarrativeResponse struct {
	Branches []models.NarrativeBranch `json:"branches"`
}

// AIHistoryResponse lists a note's recorded assistant answers, oldest first.
type AIHistoryResponse struct {
	History []models.AIResponse `json:"history"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []*models.Note `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []*models.Note `json:"results" validate:"required"`
}

// GraphNode is a node in the note graph.
type GraphNode struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Backlinks int      `json:"backlinks"`
	IsPinned  bool     `json:"isPinned"`
}

// GraphResponse wraps the note graph.
type GraphResponse struct {
	Nodes []GraphNode       `json:"nodes"`
	Links []models.NoteLink `json:"links"`
}

// SuggestionsResponse wraps tag or link suggestions.
type SuggestionsResponse[T any] struct {
	Suggestions []T `json:"suggestions"`
}
