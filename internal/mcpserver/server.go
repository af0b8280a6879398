// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Orrery tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/noteservice"
	"github.com/starford/orrery/internal/session"
)

const (
	formatURI   = "orrery://note-format"
	searchLimit = 20
	listLimit   = 50
)

// Server wraps the MCP server with Orrery tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *noteservice.Service
	sessions *session.Manager
}

// New creates a new MCP server with all Orrery tools registered.
func New(svc *noteservice.Service, sessions *session.Manager) *Server {
	s := &Server{svc: svc, sessions: sessions}

	s.mcp = server.NewMCPServer(
		"Orrery",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search through note titles, content and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note by ID or by exact title."),
		mcp.WithString("id", mcp.Description("Note ID")),
		mcp.WithString("title", mcp.Description("Exact note title; used when id is empty")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Content uses [[Title]] wiki-links and #tags; "+
			"read the contract first via get_note_contract or the "+formatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Description("Markdown content")),
		mcp.WithString("type", mcp.Description("note, story, research or canvas"), mcp.Enum("note", "story", "research", "canvas")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Change the title and/or content of a note. Omitted fields are left untouched."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("content", mcp.Description("New Markdown content")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Orrery note format contract. "+
			"Call this before creating or updating notes."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recently updated first."),
		mcp.WithString("tag", mcp.Description("Only notes with this tag")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default 50)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("ID of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("analyze_note",
		mcp.WithDescription("Detect the note's document type and extract its key checkpoints and their relationships."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.analyzeNote)

	s.mcp.AddTool(mcp.NewTool("what_if",
		mcp.WithDescription("Generate alternative outcomes for one checkpoint of an analyzed note. "+
			"Run analyze_note first."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("checkpoint_id", mcp.Required(), mcp.Description("Checkpoint ID from analyze_note")),
		mcp.WithString("question", mcp.Required(), mcp.Description("The what-if question")),
	), s.whatIf)

	s.mcp.AddTool(mcp.NewTool("get_ai_history",
		mcp.WithDescription("List earlier assistant answers for a note, oldest first: analyses, what-if branches, suggestions and rewrites."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
	), s.aiHistory)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format Contract",
			mcp.WithResourceDescription("How note content, wiki-links and tags are interpreted."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// summary is the compact note shape returned by listing tools.
type summary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Excerpt   string   `json:"excerpt"`
	Tags      []string `json:"tags"`
	Backlinks int      `json:"backlinks"`
}

func summarize(notes []*models.Note, limit int) []summary {
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	out := make([]summary, len(notes))
	for i, n := range notes {
		out[i] = summary{ID: n.ID, Title: n.Title, Excerpt: n.Excerpt, Tags: n.Tags, Backlinks: len(n.Backlinks)}
	}
	return out
}

func (s *Server) searchNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summarize(s.svc.Search(query), searchLimit))
}

func (s *Server) readNote(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	title := req.GetString("title", "")
	var (
		note *models.Note
		err  error
	)
	switch {
	case id != "":
		note, err = s.svc.Get(id)
	case title != "":
		note, err = s.svc.GetByTitle(title)
	default:
		return mcp.NewToolResultError("id or title is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return jsonResult(note)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content := req.GetString("content", "")
	noteType := models.NoteType(req.GetString("type", ""))

	note, err := s.svc.CreateNote(ctx, title, content, noteType)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", note.Title, note.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var upd models.NoteUpdate
	args := req.GetArguments()
	if v, ok := args["title"].(string); ok {
		upd.Title = &v
	}
	if v, ok := args["content"].(string); ok {
		upd.Content = &v
	}
	if upd.Title == nil && upd.Content == nil {
		return mcp.NewToolResultError("nothing to update: pass title and/or content"), nil
	}
	note, err := s.svc.UpdateNote(ctx, id, upd)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (%s)", note.Title, note.ID)), nil
}

func (s *Server) listNotes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := noteservice.Filter{}
	if tag := req.GetString("tag", ""); tag != "" {
		f.Tags = []string{tag}
	}
	limit := int(req.GetFloat("limit", listLimit))
	return jsonResult(summarize(s.svc.List(f), limit))
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(id)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	lines := make([]string, len(bl))
	for i, n := range bl {
		lines[i] = n.ID + "\t" + n.Title
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) analyzeNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Get(id)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	res, err := s.sessions.Analyze(ctx, note)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	s.remember(ctx, noteservice.NewAIRecord(id, models.AIActionAnalyze, string(res.DetectedType), res))
	return jsonResult(res)
}

func (s *Server) whatIf(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cpID, err := req.RequireString("checkpoint_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Get(id)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	branches, err := s.sessions.GenerateBranches(ctx, id, cpID, question, note.Content)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	s.remember(ctx, noteservice.NewAIRecord(id, models.AIActionWhatIf, question, branches))
	return jsonResult(branches)
}

func (s *Server) aiHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	history, err := s.svc.AIHistory(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	if len(history) == 0 {
		return mcp.NewToolResultText("no ai history for this note"), nil
	}
	return jsonResult(history)
}

func (s *Server) remember(ctx context.Context, rec models.AIResponse) {
	if _, err := s.svc.RecordAI(ctx, rec); err != nil {
		slog.Warn("record ai response",
			slog.String("note_id", rec.NoteID),
			slog.String("error", err.Error()))
	}
}

// toolError turns domain errors into messages an LLM can act on.
func toolError(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "not found"
	case errors.Is(err, apperr.ErrNoAnalysis):
		return "note has not been analyzed: call analyze_note first"
	case errors.Is(err, apperr.ErrAnalysisFailed):
		return "could not determine the note type"
	case errors.Is(err, apperr.ErrStale):
		return "analysis was superseded by a newer one"
	default:
		return err.Error()
	}
}
