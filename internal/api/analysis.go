package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/orrery/internal/analysis"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/noteservice"
	"github.com/starford/orrery/internal/session"
)

// NoteTypes handles GET /api/note-types.
func (h *Handler) NoteTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"types": analysis.Configs(),
		"icons": analysis.CheckpointIcons,
	})
}

// Analyze handles POST /api/notes/{id}/analysis. It runs the detect,
// extract and relationship stages on the note's current content, including
// any pending draft. Progress is published on the event stream.
//
//	@Summary		Analyze a note into an intelligent graph
//	@Tags			analysis
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	models.AnalysisResult
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse	"superseded by a newer analysis"
//	@Failure		422	{object}	errResponse	"note type could not be detected"
//	@Router			/notes/{id}/analysis [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	note, err := h.drafts.Note(noteID(r))
	if err != nil {
		writeError(w, h.logger, "analyze", err)
		return
	}
	res, err := h.sessions.Analyze(r.Context(), note)
	if err != nil {
		writeError(w, h.logger, "analyze", err)
		return
	}
	h.remember(r, noteservice.NewAIRecord(note.ID, models.AIActionAnalyze, string(res.DetectedType), res))
	writeJSON(w, http.StatusOK, res)
}

// Focus handles POST /api/notes/{id}/focus. Clients call it when the viewed
// note changes; an analysis still running for another note is cancelled and
// answers 409.
func (h *Handler) Focus(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if _, err := h.svc.Get(id); err != nil {
		writeError(w, h.logger, "focus", err)
		return
	}
	h.sessions.Focus(id)
	w.WriteHeader(http.StatusNoContent)
}

// GetAnalysis handles GET /api/notes/{id}/analysis.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(noteID(r))
	if err != nil {
		writeError(w, h.logger, "get analysis", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ClearAnalysis handles DELETE /api/notes/{id}/analysis.
func (h *Handler) ClearAnalysis(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(noteID(r))
	w.WriteHeader(http.StatusNoContent)
}

// Layout handles GET /api/notes/{id}/analysis/layout.
//
//	@Summary		Position the analyzed checkpoints
//	@Tags			analysis
//	@Produce		json
//	@Param			id		path		string	true	"Note ID"
//	@Param			type	query		string	false	"Layout type; defaults to the suggested layout"
//	@Param			width	query		number	false	"Container width"
//	@Param			height	query		number	false	"Container height"
//	@Success		200		{object}	layout.Layout
//	@Router			/notes/{id}/analysis/layout [get]
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, _ := strconv.ParseFloat(q.Get("width"), 64)
	height, _ := strconv.ParseFloat(q.Get("height"), 64)
	l, err := h.sessions.Layout(noteID(r), models.LayoutType(q.Get("type")), width, height)
	if err != nil {
		writeError(w, h.logger, "layout", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// SelectCheckpoint handles POST /api/notes/{id}/analysis/select.
func (h *Handler) SelectCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req SelectCheckpointRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.sessions.SelectCheckpoint(noteID(r), req.CheckpointID)
	if err != nil {
		writeError(w, h.logger, "select checkpoint", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GenerateBranches handles POST /api/notes/{id}/analysis/branches.
//
//	@Summary		Generate what-if branches for a checkpoint
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note ID"
//	@Param			body	body		BranchesRequest	true	"Checkpoint and question"
//	@Success		200		{object}	map[string][]models.SpeculativeBranch
//	@Router			/notes/{id}/analysis/branches [post]
func (h *Handler) GenerateBranches(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req BranchesRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.drafts.Note(id)
	if err != nil {
		writeError(w, h.logger, "generate branches", err)
		return
	}
	branches, err := h.sessions.GenerateBranches(r.Context(), id, req.CheckpointID, req.Question, note.Content)
	if err != nil {
		writeError(w, h.logger, "generate branches", err)
		return
	}
	h.remember(r, noteservice.NewAIRecord(id, models.AIActionWhatIf, req.Question, branches))
	writeJSON(w, http.StatusOK, map[string]any{"branches": branches})
}

// ClearBranches handles DELETE /api/notes/{id}/analysis/branches.
func (h *Handler) ClearBranches(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearBranches(noteID(r))
	w.WriteHeader(http.StatusNoContent)
}

// GraphSettings handles GET /api/graph/settings.
func (h *Handler) GraphSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.GraphSettings())
}

// UpdateGraphSettings handles PATCH /api/graph/settings.
func (h *Handler) UpdateGraphSettings(w http.ResponseWriter, r *http.Request) {
	var req session.GraphSettingsUpdate
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.UpdateGraphSettings(req))
}

// ResetGraphSettings handles DELETE /api/graph/settings.
func (h *Handler) ResetGraphSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.ResetGraphSettings())
}

// SuggestTags handles POST /api/notes/{id}/suggestions/tags.
func (h *Handler) SuggestTags(w http.ResponseWriter, r *http.Request) {
	note, err := h.drafts.Note(noteID(r))
	if err != nil {
		writeError(w, h.logger, "suggest tags", err)
		return
	}
	tags := h.analyzer.SuggestTags(r.Context(), note.Content, h.svc.Tags())
	h.remember(r, noteservice.NewAIRecord(note.ID, models.AIActionSuggestTags, "", tags))
	writeJSON(w, http.StatusOK, SuggestionsResponse[string]{Suggestions: tags})
}

// SuggestLinks handles POST /api/notes/{id}/suggestions/links. Candidates
// are the most recently updated notes the note does not already link to.
func (h *Handler) SuggestLinks(w http.ResponseWriter, r *http.Request) {
	note, err := h.drafts.Note(noteID(r))
	if err != nil {
		writeError(w, h.logger, "suggest links", err)
		return
	}
	linked := make(map[string]bool, len(note.LinkedNotes))
	for _, t := range note.LinkedNotes {
		linked[t] = true
	}
	var candidates []analysis.LinkCandidate
	active := false
	for _, n := range h.svc.List(noteservice.Filter{IsArchived: &active}) {
		if n.ID == note.ID || linked[n.Title] {
			continue
		}
		candidates = append(candidates, analysis.LinkCandidate{ID: n.ID, Title: n.Title, Excerpt: n.Excerpt})
	}
	links := h.analyzer.SuggestLinks(r.Context(), note.Content, candidates)
	h.remember(r, noteservice.NewAIRecord(note.ID, models.AIActionSuggestLinks, "", links))
	writeJSON(w, http.StatusOK, SuggestionsResponse[analysis.LinkSuggestion]{Suggestions: links})
}

// Assist handles POST /api/assist. With a noteId the answer is added to
// that note's AI history.
//
//	@Summary		Rewrite text with the writing assistant
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AssistRequest	true	"Action and text"
//	@Success		200		{object}	AssistResponse
//	@Failure		502		{object}	errResponse
//	@Router			/assist [post]
func (h *Handler) Assist(w http.ResponseWriter, r *http.Request) {
	var req AssistRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.noteExists(w, req.NoteID, "assist") {
		return
	}
	out, err := h.analyzer.Assist(r.Context(), req.Action, req.Text, req.Context)
	if err != nil {
		h.logger.Warn("assist failed",
			slog.String("action", string(req.Action)),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("assistant unavailable"))
		return
	}
	if req.NoteID != "" {
		h.remember(r, noteservice.NewAIRecord(req.NoteID, models.AIAction(req.Action), out, nil))
	}
	writeJSON(w, http.StatusOK, AssistResponse{Text: out})
}

// NarrativeBranches handles POST /api/assist/branches.
//
//	@Summary		Generate plot branches from a decision point
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NarrativeRequest	true	"Decision and story context"
//	@Success		200		{object}	NarrativeResponse
//	@Failure		404		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Router			/assist/branches [post]
func (h *Handler) NarrativeBranches(w http.ResponseWriter, r *http.Request) {
	var req NarrativeRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.noteExists(w, req.NoteID, "narrative branches") {
		return
	}
	branches, err := h.analyzer.NarrativeBranches(r.Context(), req.Decision, req.Story)
	if err != nil {
		h.logger.Warn("narrative branches failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("assistant unavailable"))
		return
	}
	if req.NoteID != "" {
		h.remember(r, noteservice.NewAIRecord(req.NoteID, models.AIActionGenerateBranches, req.Decision, branches))
	}
	writeJSON(w, http.StatusOK, NarrativeResponse{Branches: branches})
}

// AIHistory handles GET /api/notes/{id}/ai-history.
func (h *Handler) AIHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.AIHistory(r.Context(), noteID(r))
	if err != nil {
		writeError(w, h.logger, "ai history", err)
		return
	}
	writeJSON(w, http.StatusOK, AIHistoryResponse{History: history})
}

// noteExists answers 404 and returns false when an optional note ID names
// no note.
func (h *Handler) noteExists(w http.ResponseWriter, id, op string) bool {
	if id == "" {
		return true
	}
	if _, err := h.svc.Get(id); err != nil {
		writeError(w, h.logger, op, err)
		return false
	}
	return true
}

// remember adds an answer to the note's AI history. The answer has already
// been computed, so a failure is only logged.
func (h *Handler) remember(r *http.Request, rec models.AIResponse) {
	if _, err := h.svc.RecordAI(r.Context(), rec); err != nil {
		h.logger.Warn("record ai response",
			slog.String("note_id", rec.NoteID),
			slog.String("action", string(rec.Action)),
			slog.String("error", err.Error()))
	}
}
