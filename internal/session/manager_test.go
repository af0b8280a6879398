package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/orrery/internal/ai"
	"github.com/starford/orrery/internal/analysis"
	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/testutil"
)

// scripted answers each stage by matching its prompt.
func scripted() ai.Func {
	return func(_ context.Context, req ai.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "determine what type of note"):
			return `{"type":"story","confidence":0.8}`, nil
		case strings.Contains(req.Prompt, "extract key checkpoints"):
			return `{"checkpoints":[
				{"title":"Opening","content":"a","type":"plot-event","importance":5},
				{"title":"Climax","content":"b","type":"conflict","importance":9}]}`, nil
		case strings.Contains(req.Prompt, "Analyze relationships"):
			return `{"relationships":[{"sourceIndex":0,"targetIndex":1,"type":"causal","strength":0.7}]}`, nil
		default:
			return `{"branches":[{"title":"Alt","description":"d","consequences":"c","confidence":0.5}]}`, nil
		}
	}
}

// fakePipeline lets tests control each stage directly.
type fakePipeline struct {
	detect   func(ctx context.Context) *analysis.Detection
	cps      []models.Checkpoint
	branches []models.SpeculativeBranch
	whatIf   func()
}

func (f *fakePipeline) DetectNoteType(ctx context.Context, _ string) *analysis.Detection {
	return f.detect(ctx)
}

func (f *fakePipeline) ExtractCheckpoints(context.Context, string, models.DetectedNoteType) []models.Checkpoint {
	return f.cps
}

func (f *fakePipeline) AnalyzeRelationships(context.Context, []models.Checkpoint, models.DetectedNoteType) []models.CheckpointRelationship {
	return []models.CheckpointRelationship{}
}

func (f *fakePipeline) GenerateWhatIfBranches(context.Context, models.Checkpoint, string, string, models.DetectedNoteType, []models.Checkpoint) []models.SpeculativeBranch {
	if f.whatIf != nil {
		f.whatIf()
	}
	return f.branches
}

func story() *fakePipeline {
	return &fakePipeline{
		detect: func(context.Context) *analysis.Detection {
			return &analysis.Detection{Type: models.DetectedStory, Confidence: 0.8}
		},
		cps: []models.Checkpoint{
			{ID: "c1", Title: "Opening", Type: "plot-event", Importance: 5},
			{ID: "c2", Title: "Climax", Type: "conflict", Importance: 9},
		},
		branches: []models.SpeculativeBranch{{ID: "b1", Title: "Alt"}},
	}
}

func note(id string) *models.Note {
	return &models.Note{ID: id, Title: id, Content: "Once upon a time."}
}

func TestAnalyze(t *testing.T) {
	var (
		mu    sync.Mutex
		steps []Progress
	)
	m := NewManager(story(),
		WithLogger(testutil.Logger()),
		WithProgress(func(p Progress) {
			mu.Lock()
			steps = append(steps, p)
			mu.Unlock()
		}))

	res, err := m.Analyze(context.Background(), note("n1"))
	require.NoError(t, err)
	assert.Equal(t, models.DetectedStory, res.DetectedType)
	assert.Equal(t, models.LayoutHorizontalTimeline, res.SuggestedLayout)
	assert.Len(t, res.Checkpoints, 2)

	assert.Equal(t, []Progress{
		{NoteID: "n1", Percent: 20, Step: StepDetect},
		{NoteID: "n1", Percent: 40, Step: StepExtract},
		{NoteID: "n1", Percent: 70, Step: StepRelationships},
		{NoteID: "n1", Percent: 100, Step: StepComplete},
	}, steps)

	s, err := m.Get("n1")
	require.NoError(t, err)
	assert.Equal(t, res, s.Result)
	assert.Equal(t, "n1", m.Current())
}

func TestAnalyze_WithAnalyzer(t *testing.T) {
	a := analysis.NewAnalyzer(scripted(), analysis.WithLogger(testutil.Logger()))
	m := NewManager(a, WithLogger(testutil.Logger()))

	res, err := m.Analyze(context.Background(), note("n1"))
	require.NoError(t, err)
	assert.Equal(t, models.DetectedStory, res.DetectedType)
	require.Len(t, res.Checkpoints, 2)
	require.Len(t, res.Relationships, 1)
	assert.Equal(t, res.Checkpoints[0].ID, res.Relationships[0].SourceID)
}

func TestAnalyze_DetectionFailed(t *testing.T) {
	p := story()
	p.detect = func(context.Context) *analysis.Detection { return nil }
	var last Progress
	m := NewManager(p, WithLogger(testutil.Logger()), WithProgress(func(pr Progress) { last = pr }))

	_, err := m.Analyze(context.Background(), note("n1"))
	assert.ErrorIs(t, err, apperr.ErrAnalysisFailed)
	assert.Equal(t, StepFailed, last.Step)

	_, err = m.Get("n1")
	assert.ErrorIs(t, err, apperr.ErrNoAnalysis)
}

func TestAnalyze_SupersededRunIsStale(t *testing.T) {
	started := make(chan struct{})
	p := story()
	first := true
	var mu sync.Mutex
	p.detect = func(ctx context.Context) *analysis.Detection {
		mu.Lock()
		block := first
		first = false
		mu.Unlock()
		if block {
			close(started)
			<-ctx.Done()
		}
		return &analysis.Detection{Type: models.DetectedStory, Confidence: 0.8}
	}
	m := NewManager(p, WithLogger(testutil.Logger()))

	errc := make(chan error, 1)
	go func() {
		_, err := m.Analyze(context.Background(), note("n1"))
		errc <- err
	}()
	<-started

	_, err := m.Analyze(context.Background(), note("n2"))
	require.NoError(t, err)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, apperr.ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded analysis did not return")
	}

	_, err = m.Get("n1")
	assert.ErrorIs(t, err, apperr.ErrNoAnalysis, "stale result must not be stored")
	_, err = m.Get("n2")
	assert.NoError(t, err)
}

func TestFocus_CancelsRunningAnalysis(t *testing.T) {
	started := make(chan struct{})
	p := story()
	p.detect = func(ctx context.Context) *analysis.Detection {
		close(started)
		<-ctx.Done()
		return nil
	}
	m := NewManager(p, WithLogger(testutil.Logger()))

	errc := make(chan error, 1)
	go func() {
		_, err := m.Analyze(context.Background(), note("n1"))
		errc <- err
	}()
	<-started
	m.Focus("other")

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, apperr.ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("focus change did not cancel analysis")
	}
}

func TestSelectCheckpointAndBranches(t *testing.T) {
	m := NewManager(story(), WithLogger(testutil.Logger()))
	ctx := context.Background()
	_, err := m.Analyze(ctx, note("n1"))
	require.NoError(t, err)

	branches, err := m.GenerateBranches(ctx, "n1", "c2", "What if?", "body")
	require.NoError(t, err)
	assert.Len(t, branches, 1)

	s, _ := m.Get("n1")
	assert.Equal(t, "c2", s.SelectedCheckpointID)
	assert.Len(t, s.Branches, 1)

	s, err = m.SelectCheckpoint("n1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", s.SelectedCheckpointID)
	assert.Empty(t, s.Branches, "selecting a checkpoint discards branches")

	_, err = m.SelectCheckpoint("n1", "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = m.GenerateBranches(ctx, "n1", "ghost", "q", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = m.GenerateBranches(ctx, "nope", "c1", "q", "")
	assert.ErrorIs(t, err, apperr.ErrNoAnalysis)

	_, _ = m.GenerateBranches(ctx, "n1", "c1", "q", "")
	m.ClearBranches("n1")
	s, _ = m.Get("n1")
	assert.Empty(t, s.Branches)
}

func TestGenerateBranches_OvertakenResultIsDiscarded(t *testing.T) {
	tests := []struct {
		name  string
		reset func(m *Manager)
		want  string
	}{
		{"select another checkpoint", func(m *Manager) { _, _ = m.SelectCheckpoint("n1", "c2") }, "c2"},
		{"clear branches", func(m *Manager) { m.ClearBranches("n1") }, ""},
		{"re-analyze", func(m *Manager) { _, _ = m.Analyze(context.Background(), note("n1")) }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := story()
			m := NewManager(p, WithLogger(testutil.Logger()))
			_, err := m.Analyze(context.Background(), note("n1"))
			require.NoError(t, err)

			started := make(chan struct{})
			release := make(chan struct{})
			p.whatIf = func() {
				close(started)
				<-release
			}

			errCh := make(chan error, 1)
			go func() {
				_, err := m.GenerateBranches(context.Background(), "n1", "c1", "What if?", "body")
				errCh <- err
			}()
			<-started
			p.whatIf = nil
			tt.reset(m)
			close(release)

			assert.ErrorIs(t, <-errCh, apperr.ErrStale)
			s, err := m.Get("n1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.SelectedCheckpointID)
			assert.Empty(t, s.Branches)
		})
	}
}

func TestGenerateBranches_LatestRequestWins(t *testing.T) {
	p := story()
	m := NewManager(p, WithLogger(testutil.Logger()))
	_, err := m.Analyze(context.Background(), note("n1"))
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	p.whatIf = func() {
		close(started)
		<-release
	}
	errCh := make(chan error, 1)
	go func() {
		_, err := m.GenerateBranches(context.Background(), "n1", "c1", "first", "body")
		errCh <- err
	}()
	<-started
	p.whatIf = nil

	_, err = m.GenerateBranches(context.Background(), "n1", "c2", "second", "body")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errCh, apperr.ErrStale)
	s, _ := m.Get("n1")
	assert.Equal(t, "c2", s.SelectedCheckpointID)
	assert.Len(t, s.Branches, 1)
}

func TestLayout(t *testing.T) {
	m := NewManager(story(), WithLogger(testutil.Logger()), WithCanvas(1000, 600))
	_, err := m.Layout("n1", "", 0, 0)
	assert.ErrorIs(t, err, apperr.ErrNoAnalysis)

	_, err = m.Analyze(context.Background(), note("n1"))
	require.NoError(t, err)

	l, err := m.Layout("n1", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, models.LayoutHorizontalTimeline, l.Type)
	// Timeline centers on the configured canvas height.
	assert.Equal(t, 260.0, l.Nodes[0].Y)

	l, err = m.Layout("n1", models.LayoutNetworkWeb, 1200, 800)
	require.NoError(t, err)
	assert.Equal(t, models.LayoutNetworkWeb, l.Type)
	assert.Equal(t, "c2", l.Nodes[0].ID)
}

func TestClearAndDrop(t *testing.T) {
	m := NewManager(story(), WithLogger(testutil.Logger()))
	_, err := m.Analyze(context.Background(), note("n1"))
	require.NoError(t, err)

	m.Drop("n1")
	_, err = m.Get("n1")
	assert.ErrorIs(t, err, apperr.ErrNoAnalysis)
	assert.Empty(t, m.Current())
}

func TestGraphSettings(t *testing.T) {
	m := NewManager(story())
	size := 12.0
	labels := false
	got := m.UpdateGraphSettings(GraphSettingsUpdate{NodeSize: &size, ShowLabels: &labels})
	assert.Equal(t, 12.0, got.NodeSize)
	assert.False(t, got.ShowLabels)
	assert.Equal(t, models.DefaultGraphSettings().LinkStrength, got.LinkStrength)
	assert.Equal(t, got, m.GraphSettings())

	assert.Equal(t, models.DefaultGraphSettings(), m.ResetGraphSettings())
}
