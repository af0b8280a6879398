package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/orrery/internal/analysis"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/noteservice"
	"github.com/starford/orrery/internal/session"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Notes    *noteservice.Service
	Drafts   *noteservice.Debouncer
	Sessions *session.Manager
	Analyzer *analysis.Analyzer
	Logger   *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	svc      *noteservice.Service
	drafts   *noteservice.Debouncer
	sessions *session.Manager
	analyzer *analysis.Analyzer
	logger   *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:      d.Notes,
		drafts:   d.Drafts,
		sessions: d.Sessions,
		analyzer: d.Analyzer,
		logger:   logger,
	}
}

func noteID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func boolParam(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with filtering, sorting and pagination
//	@Tags			notes
//	@Produce		json
//	@Param			tag			query		[]string	false	"Match any of these tags"
//	@Param			type		query		string		false	"Note type"
//	@Param			pinned		query		bool		false	"Only pinned or unpinned notes"
//	@Param			archived	query		bool		false	"Only archived or active notes"
//	@Param			folder		query		string		false	"Folder ID"
//	@Param			q			query		string		false	"Substring of title, content or tags"
//	@Param			sort		query		string		false	"Sort field"	Enums(title, createdAt, updatedAt, wordCount)
//	@Param			order		query		string		false	"asc or desc"
//	@Param			limit		query		int			false	"Page size"
//	@Param			offset		query		int			false	"Page offset"
//	@Success		200			{object}	NoteListResponse
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	notes := h.svc.List(noteservice.Filter{
		Tags:        q["tag"],
		Type:        models.NoteType(q.Get("type")),
		IsPinned:    boolParam(r, "pinned"),
		IsArchived:  boolParam(r, "archived"),
		FolderID:    q.Get("folder"),
		SearchQuery: q.Get("q"),
		SortBy:      q.Get("sort"),
		Ascending:   q.Get("order") == "asc",
	})
	total := len(notes)

	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset = min(max(offset, 0), total)
	notes = notes[offset:]
	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: total})
}

// GetNote handles GET /api/notes/{id}. A pending draft is reflected in the
// returned content.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.drafts.Note(noteID(r))
	if err != nil {
		writeError(w, h.logger, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req.Title, req.Content, req.Type)
	if err != nil {
		writeError(w, h.logger, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /api/notes/{id}. Any pending draft is written
// first so the update applies on top of it.
//
//	@Summary		Partially update a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note ID"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req UpdateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.drafts.FlushNote(r.Context(), id); err != nil {
		writeError(w, h.logger, "flush draft", err)
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), id, req.NoteUpdate)
	if err != nil {
		writeError(w, h.logger, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// SaveDraft handles PUT /api/notes/{id}/draft. The content is persisted
// after the debounce period; the response reflects the draft immediately.
//
//	@Summary		Record editor content for debounced saving
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note ID"
//	@Param			body	body		DraftRequest	true	"Latest content"
//	@Success		202		{object}	models.Note
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{id}/draft [put]
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req DraftRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.drafts.Edit(id, *req.Content); err != nil {
		writeError(w, h.logger, "save draft", err)
		return
	}
	note, err := h.drafts.Note(id)
	if err != nil {
		writeError(w, h.logger, "save draft", err)
		return
	}
	writeJSON(w, http.StatusAccepted, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204	"Note deleted"
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	h.drafts.Discard(id)
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		writeError(w, h.logger, "delete note", err)
		return
	}
	h.sessions.Drop(id)
	w.WriteHeader(http.StatusNoContent)
}

// Backlinks handles GET /api/notes/{id}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.Backlinks(noteID(r))
	if err != nil {
		writeError(w, h.logger, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": notes})
}

// Search handles GET /api/search.
//
//	@Summary		Substring search across titles, content and tags
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	SearchResponse
//	@Failure		400	{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: h.svc.Search(q)})
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.svc.Tags()})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the note link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, _ *http.Request) {
	notes, links := h.svc.Graph()
	nodes := make([]GraphNode, len(notes))
	for i, n := range notes {
		nodes[i] = GraphNode{
			ID:        n.ID,
			Title:     n.Title,
			Tags:      n.Tags,
			Backlinks: len(n.Backlinks),
			IsPinned:  n.IsPinned,
		}
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Folders handles GET /api/folders.
func (h *Handler) Folders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.svc.Folders(r.Context())
	if err != nil {
		writeError(w, h.logger, "list folders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// CreateFolder handles POST /api/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decode(w, r, &req) {
		return
	}
	f, err := h.svc.CreateFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, h.logger, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// Settings handles GET /api/settings.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Settings(r.Context())
	if err != nil {
		writeError(w, h.logger, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateSettings handles PUT /api/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.UpdateSettings(r.Context(), req.Settings); err != nil {
		writeError(w, h.logger, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, req.Settings)
}
