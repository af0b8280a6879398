package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNote)
			r.Patch("/", h.UpdateNote)
			r.Delete("/", h.DeleteNote)
			r.Put("/draft", h.SaveDraft)
			r.Get("/backlinks", h.Backlinks)
			r.Post("/focus", h.Focus)
			r.Get("/ai-history", h.AIHistory)

			r.Post("/analysis", h.Analyze)
			r.Get("/analysis", h.GetAnalysis)
			r.Delete("/analysis", h.ClearAnalysis)
			r.Get("/analysis/layout", h.Layout)
			r.Post("/analysis/select", h.SelectCheckpoint)
			r.Post("/analysis/branches", h.GenerateBranches)
			r.Delete("/analysis/branches", h.ClearBranches)

			r.Post("/suggestions/tags", h.SuggestTags)
			r.Post("/suggestions/links", h.SuggestLinks)
		})
	})

	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)

	r.Get("/graph", h.Graph)
	r.Get("/graph/settings", h.GraphSettings)
	r.Patch("/graph/settings", h.UpdateGraphSettings)
	r.Delete("/graph/settings", h.ResetGraphSettings)

	r.Get("/folders", h.Folders)
	r.Post("/folders", h.CreateFolder)
	r.Get("/settings", h.Settings)
	r.Put("/settings", h.UpdateSettings)

	r.Get("/note-types", h.NoteTypes)
	r.Post("/assist", h.Assist)
	r.Post("/assist/branches", h.NarrativeBranches)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
