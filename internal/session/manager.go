// Package session keeps per-note analysis state: the intelligent graph of the
// last completed analysis, the selected checkpoint, and any speculative
// branches generated for it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/starford/orrery/internal/analysis"
	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/layout"
	"github.com/starford/orrery/internal/models"
)

// Progress steps reported while an analysis runs.
const (
	StepDetect        = "Detecting note type..."
	StepExtract       = "Extracting checkpoints..."
	StepRelationships = "Analyzing relationships..."
	StepComplete      = "Complete"
	StepFailed        = "Analysis failed"
)

// Progress is one analysis progress update.
type Progress struct {
	NoteID  string `json:"noteId"`
	Percent int    `json:"percent"`
	Step    string `json:"step"`
}

// Session is the analysis state of one note.
type Session struct {
	Result               models.AnalysisResult      `json:"result"`
	SelectedCheckpointID string                     `json:"selectedCheckpointId,omitempty"`
	Branches             []models.SpeculativeBranch `json:"branches"`

	// branchGen changes whenever the selection or branch set is reset, so a
	// branch request that started earlier can tell it was overtaken.
	branchGen uint64
}

func (s *Session) clone() *Session {
	c := *s
	c.Result.Checkpoints = slices.Clone(s.Result.Checkpoints)
	c.Result.Relationships = slices.Clone(s.Result.Relationships)
	c.Branches = slices.Clone(s.Branches)
	return &c
}

// Pipeline is the subset of analysis.Analyzer a Manager drives.
type Pipeline interface {
	DetectNoteType(ctx context.Context, content string) *analysis.Detection
	ExtractCheckpoints(ctx context.Context, content string, t models.DetectedNoteType) []models.Checkpoint
	AnalyzeRelationships(ctx context.Context, cps []models.Checkpoint, t models.DetectedNoteType) []models.CheckpointRelationship
	GenerateWhatIfBranches(ctx context.Context, cp models.Checkpoint, question, content string, t models.DetectedNoteType, all []models.Checkpoint) []models.SpeculativeBranch
}

// Manager serializes analyses: at most one runs at a time, and starting a new
// one (or focusing another note) cancels the previous run. A run that was
// superseded never overwrites session state.
type Manager struct {
	pipeline   Pipeline
	logger     *slog.Logger
	onProgress func(Progress)
	now        func() time.Time
	width      float64
	height     float64

	mu       sync.Mutex
	current  string
	gen      uint64
	cancel   context.CancelFunc
	sessions map[string]*Session
	graph    models.GraphSettings
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithProgress registers a callback for analysis progress.
func WithProgress(fn func(Progress)) Option {
	return func(m *Manager) { m.onProgress = fn }
}

// WithCanvas sets the container size used when Layout gets zero dimensions.
func WithCanvas(width, height float64) Option {
	return func(m *Manager) {
		if width > 0 && height > 0 {
			m.width, m.height = width, height
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager returns a Manager running p.
func NewManager(p Pipeline, opts ...Option) *Manager {
	m := &Manager{
		pipeline: p,
		logger:   slog.Default(),
		now:      time.Now,
		width:    1200,
		height:   800,
		sessions: make(map[string]*Session),
		graph:    models.DefaultGraphSettings(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) progress(noteID string, pct int, step string) {
	if m.onProgress != nil {
		m.onProgress(Progress{NoteID: noteID, Percent: pct, Step: step})
	}
}

// Focus marks noteID as the note being viewed. An analysis running for a
// different note is cancelled.
func (m *Manager) Focus(noteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == noteID {
		return
	}
	m.current = noteID
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Current returns the note most recently analyzed or focused.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) live(noteID string, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen && m.current == noteID
}

// Analyze runs detect, extract and relationship analysis for note and stores
// the result as the note's session. It fails with apperr.ErrAnalysisFailed
// when the type cannot be detected and apperr.ErrStale when a newer analysis
// or focus change superseded it.
func (m *Manager) Analyze(ctx context.Context, note *models.Note) (models.AnalysisResult, error) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	m.current = note.ID
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		if m.gen == gen {
			m.cancel = nil
		}
		m.mu.Unlock()
		cancel()
	}()

	stale := func(stage string) error {
		m.logger.Info("analysis superseded",
			slog.String("note_id", note.ID),
			slog.String("stage", stage))
		return fmt.Errorf("session: analyze %s: %w", note.ID, apperr.ErrStale)
	}

	m.progress(note.ID, 20, StepDetect)
	det := m.pipeline.DetectNoteType(runCtx, note.Content)
	if !m.live(note.ID, gen) {
		return models.AnalysisResult{}, stale("detect")
	}
	if det == nil {
		m.progress(note.ID, 0, StepFailed)
		return models.AnalysisResult{}, fmt.Errorf("session: analyze %s: %w", note.ID, apperr.ErrAnalysisFailed)
	}

	m.progress(note.ID, 40, StepExtract)
	cps := m.pipeline.ExtractCheckpoints(runCtx, note.Content, det.Type)
	if !m.live(note.ID, gen) {
		return models.AnalysisResult{}, stale("extract")
	}

	m.progress(note.ID, 70, StepRelationships)
	rels := m.pipeline.AnalyzeRelationships(runCtx, cps, det.Type)

	result := models.AnalysisResult{
		NoteID:          note.ID,
		DetectedType:    det.Type,
		TypeConfidence:  det.Confidence,
		Checkpoints:     cps,
		Relationships:   rels,
		SuggestedLayout: analysis.LayoutFor(det.Type),
		AnalyzedAt:      m.now(),
	}

	m.mu.Lock()
	if m.gen != gen || m.current != note.ID {
		m.mu.Unlock()
		return models.AnalysisResult{}, stale("relationships")
	}
	m.sessions[note.ID] = &Session{Result: result, Branches: []models.SpeculativeBranch{}}
	m.mu.Unlock()

	m.progress(note.ID, 100, StepComplete)
	m.logger.Info("note analyzed",
		slog.String("note_id", note.ID),
		slog.String("type", string(det.Type)),
		slog.Int("checkpoints", len(cps)),
		slog.Int("relationships", len(rels)))
	return result, nil
}

// Get returns a copy of the session for noteID.
func (m *Manager) Get(noteID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[noteID]
	if !ok {
		return nil, fmt.Errorf("session: %s: %w", noteID, apperr.ErrNoAnalysis)
	}
	return s.clone(), nil
}

// Clear discards the session of noteID and cancels its running analysis.
func (m *Manager) Clear(noteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, noteID)
	if m.current == noteID {
		m.gen++
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.current = ""
	}
}

// Drop forgets noteID after the note was deleted.
func (m *Manager) Drop(noteID string) {
	m.Clear(noteID)
}

// SelectCheckpoint selects cpID (empty clears the selection). Branches of the
// previous selection are discarded.
func (m *Manager) SelectCheckpoint(noteID, cpID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[noteID]
	if !ok {
		return nil, fmt.Errorf("session: %s: %w", noteID, apperr.ErrNoAnalysis)
	}
	if cpID != "" && findCheckpoint(s.Result.Checkpoints, cpID) == nil {
		return nil, fmt.Errorf("session: checkpoint %s: %w", cpID, apperr.ErrNotFound)
	}
	s.SelectedCheckpointID = cpID
	s.Branches = []models.SpeculativeBranch{}
	s.branchGen++
	return s.clone(), nil
}

// GenerateBranches asks for what-if branches of cpID and stores them in the
// session. content is the current note body. If the session was re-analyzed,
// cleared, or its selection or branches changed while the request ran, the
// result is discarded with apperr.ErrStale.
func (m *Manager) GenerateBranches(ctx context.Context, noteID, cpID, question, content string) ([]models.SpeculativeBranch, error) {
	m.mu.Lock()
	s, ok := m.sessions[noteID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("session: %s: %w", noteID, apperr.ErrNoAnalysis)
	}
	cp := findCheckpoint(s.Result.Checkpoints, cpID)
	if cp == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("session: checkpoint %s: %w", cpID, apperr.ErrNotFound)
	}
	checkpoint := *cp
	all := slices.Clone(s.Result.Checkpoints)
	noteType := s.Result.DetectedType
	s.branchGen++
	gen := s.branchGen
	m.mu.Unlock()

	branches := m.pipeline.GenerateWhatIfBranches(ctx, checkpoint, question, content, noteType, all)

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[noteID]; !ok || cur != s || s.branchGen != gen {
		m.logger.Info("what-if branches superseded",
			slog.String("note_id", noteID),
			slog.String("checkpoint_id", cpID))
		return nil, fmt.Errorf("session: branches %s: %w", cpID, apperr.ErrStale)
	}
	s.SelectedCheckpointID = cpID
	s.Branches = branches
	return slices.Clone(branches), nil
}

// ClearBranches discards the branches of noteID.
func (m *Manager) ClearBranches(noteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[noteID]; ok {
		s.Branches = []models.SpeculativeBranch{}
		s.branchGen++
	}
}

// Layout positions the session's graph. An empty layoutType uses the
// suggested layout; zero dimensions use the configured canvas.
func (m *Manager) Layout(noteID string, layoutType models.LayoutType, width, height float64) (layout.Layout, error) {
	s, err := m.Get(noteID)
	if err != nil {
		return layout.Layout{}, err
	}
	if layoutType == "" {
		layoutType = s.Result.SuggestedLayout
	}
	if width <= 0 || height <= 0 {
		width, height = m.width, m.height
	}
	return layout.Calculate(s.Result.Checkpoints, s.Result.Relationships, layoutType, width, height), nil
}

func findCheckpoint(cps []models.Checkpoint, id string) *models.Checkpoint {
	for i := range cps {
		if cps[i].ID == id {
			return &cps[i]
		}
	}
	return nil
}
