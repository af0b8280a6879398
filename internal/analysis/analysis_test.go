package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/orrery/internal/ai"
	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/testutil"
)

func newAnalyzer(gen ai.Generator) *Analyzer {
	return NewAnalyzer(gen,
		WithLogger(testutil.Logger()),
		WithClock(func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }))
}

func TestDetectNoteType(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  *Detection
	}{
		{"ok", `{"type":"research","confidence":0.9,"reasoning":"cites studies"}`, nil,
			&Detection{Type: models.DetectedResearch, Confidence: 0.9, Reasoning: "cites studies"}},
		{"fenced with prose", "Sure:\n```json\n{\"type\":\"meeting\",\"confidence\":1.4}\n```", nil,
			&Detection{Type: models.DetectedMeeting, Confidence: 1}},
		{"unknown type", `{"type":"poem","confidence":0.9}`, nil, nil},
		{"missing confidence", `{"type":"story"}`, nil, nil},
		{"no json", "I think it is a story.", nil, nil},
		{"generator error", "", errors.New("timeout"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAnalyzer(&ai.Static{Reply: tt.reply, Err: tt.err})
			assert.Equal(t, tt.want, a.DetectNoteType(context.Background(), "text"))
		})
	}
}

func TestDetectNoteType_TruncatesSample(t *testing.T) {
	gen := &ai.Static{Reply: `{"type":"story","confidence":0.5}`}
	a := newAnalyzer(gen)
	a.DetectNoteType(context.Background(), strings.Repeat("x", 5000)+"TAIL")

	prompts := gen.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], strings.Repeat("x", 2000))
	assert.NotContains(t, prompts[0], strings.Repeat("x", 2001))
	assert.NotContains(t, prompts[0], "TAIL")
}

func TestExtractCheckpoints(t *testing.T) {
	gen := &ai.Static{Reply: `Here you go:
{"checkpoints":[
 {"title":"Hypothesis","content":"Sleep improves recall","excerpt":"","type":"hypothesis","importance":14,"startOffset":0,"endOffset":21},
 {"title":"Finding","content":"Recall rose 20%","excerpt":"Recall rose","type":"finding","importance":0.2}
]}
Enjoy!`}
	a := newAnalyzer(gen)
	cps := a.ExtractCheckpoints(context.Background(), "body", models.DetectedResearch)

	require.Len(t, cps, 2)
	assert.NotEmpty(t, cps[0].ID)
	assert.NotEqual(t, cps[0].ID, cps[1].ID)
	assert.Equal(t, 10, cps[0].Importance)
	assert.Equal(t, 1, cps[1].Importance)
	assert.Equal(t, models.DetectedResearch, cps[0].NoteType)
	assert.Equal(t, models.CheckpointPosition{StartOffset: 0, EndOffset: 21}, cps[0].Position)
	assert.Equal(t, "Sleep improves recall", cps[0].Excerpt)
	assert.Equal(t, "Recall rose", cps[1].Excerpt)

	prompt := gen.Prompts()[0]
	assert.Contains(t, prompt, "Analyze this research content")
	assert.Contains(t, prompt, "Types: hypothesis, finding, data-point, insight, research-question, conclusion")
}

func TestExtractCheckpoints_Degrades(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, []models.Checkpoint{}, newAnalyzer(&ai.Static{Reply: "Here you go:\n{\"checkpoints\":[]}\nEnjoy!"}).ExtractCheckpoints(ctx, "x", models.DetectedStory))
	assert.Equal(t, []models.Checkpoint{}, newAnalyzer(&ai.Static{Reply: "nope"}).ExtractCheckpoints(ctx, "x", models.DetectedStory))
	assert.Equal(t, []models.Checkpoint{}, newAnalyzer(&ai.Static{Err: errors.New("down")}).ExtractCheckpoints(ctx, "x", models.DetectedStory))
}

func checkpoints(n int) []models.Checkpoint {
	out := make([]models.Checkpoint, n)
	for i := range out {
		out[i] = models.Checkpoint{ID: string(rune('a' + i)), Title: "T" + string(rune('a'+i)), Type: "step"}
	}
	return out
}

func TestAnalyzeRelationships(t *testing.T) {
	gen := &ai.Static{Reply: `{"relationships":[
		{"sourceIndex":0,"targetIndex":1,"type":"causal","strength":0.8,"description":"leads"},
		{"sourceIndex":1,"targetIndex":7,"type":"causal","strength":0.5},
		{"targetIndex":1,"type":"causal","strength":0.5},
		{"sourceIndex":1,"targetIndex":2,"type":"mystery","strength":3}
	]}`}
	a := newAnalyzer(gen)
	rels := a.AnalyzeRelationships(context.Background(), checkpoints(3), models.DetectedProcess)

	require.Len(t, rels, 2)
	assert.Equal(t, "a", rels[0].SourceID)
	assert.Equal(t, "b", rels[0].TargetID)
	assert.Equal(t, models.RelCausal, rels[0].Type)
	assert.InDelta(t, 0.8, rels[0].Strength, 1e-9)
	assert.Equal(t, models.RelThematic, rels[1].Type)
	assert.InDelta(t, 1.0, rels[1].Strength, 1e-9)
	assert.Contains(t, gen.Prompts()[0], `0: "Ta" (step)`)
}

func TestAnalyzeRelationships_TooFewCheckpoints(t *testing.T) {
	gen := &ai.Static{Reply: `{"relationships":[]}`}
	rels := newAnalyzer(gen).AnalyzeRelationships(context.Background(), checkpoints(1), models.DetectedProcess)
	assert.Empty(t, rels)
	assert.Empty(t, gen.Prompts(), "no call for fewer than two checkpoints")
}

func TestGenerateWhatIfBranches(t *testing.T) {
	gen := &ai.Static{Reply: `{"branches":[
		{"title":"Stay home","description":"d","consequences":"c","pros":["safe"],"confidence":0.6,
		 "nextCheckpoints":[{"title":"Next","description":"then"}]},
		{"title":"Leave","description":"d2","consequences":"c2","confidence":-2},
		{"title":"Wait","description":"d3","consequences":"c3"}
	]}`}
	a := newAnalyzer(gen)
	cp := models.Checkpoint{ID: "cp1", Title: "The choice", Content: "She hesitates", NoteType: models.DetectedStory}
	all := checkpoints(7)

	branches := a.GenerateWhatIfBranches(context.Background(), cp, "What if she left?", "long story", models.DetectedStory, all)
	require.Len(t, branches, 3)
	b := branches[0]
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "cp1", b.ParentCheckpointID)
	assert.Equal(t, "What if she left?", b.WhatIfQuestion)
	assert.Equal(t, []string{"safe"}, b.Pros)
	assert.Equal(t, []string{}, b.Cons)
	assert.Equal(t, []models.NextCheckpoint{{Title: "Next", Description: "then"}}, b.NextCheckpoints)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), b.GeneratedAt)
	assert.Equal(t, []models.NextCheckpoint{}, branches[1].NextCheckpoints)
	require.NotNil(t, b.Confidence)
	assert.Equal(t, 0.6, *b.Confidence)
	require.NotNil(t, branches[1].Confidence)
	assert.Equal(t, 0.0, *branches[1].Confidence, "clamped")
	assert.Nil(t, branches[2].Confidence, "missing confidence stays unset")

	prompt := gen.Prompts()[0]
	assert.Contains(t, prompt, "Generate 3 distinct alternative paths/outcomes.")
	assert.Contains(t, prompt, "Stay true to characters and world rules.")
	assert.Contains(t, prompt, "- Te")
	assert.NotContains(t, prompt, "- Tf", "only the first five checkpoints are given as context")
}

func TestGenerateWhatIfBranches_Failure(t *testing.T) {
	a := newAnalyzer(&ai.Static{Err: errors.New("down")})
	got := a.GenerateWhatIfBranches(context.Background(), models.Checkpoint{ID: "x"}, "q", "", models.DetectedStory, nil)
	assert.Equal(t, []models.SpeculativeBranch{}, got)
}

func TestSuggestTags(t *testing.T) {
	a := newAnalyzer(&ai.Static{Reply: `Tags: ["Go", "#concurrency", "go", " "]`})
	assert.Equal(t, []string{"go", "concurrency"}, a.SuggestTags(context.Background(), "content", []string{"existing"}))
}

func TestSuggestLinks(t *testing.T) {
	gen := &ai.Static{Reply: `{"suggestions":[
		{"noteTitle":"project plan","reason":"same project","confidence":0.8},
		{"noteTitle":"Nope","reason":"?","confidence":0.9}
	]}`}
	a := newAnalyzer(gen)
	got := a.SuggestLinks(context.Background(), "content", []LinkCandidate{{ID: "p1", Title: "Project Plan", Excerpt: "plan"}})
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].TargetNoteID)
	assert.Equal(t, "same project", got[0].Reason)

	assert.Empty(t, a.SuggestLinks(context.Background(), "content", nil))
}

func TestAssist(t *testing.T) {
	gen := &ai.Static{Reply: "  Better text.\n"}
	a := newAnalyzer(gen)

	out, err := a.Assist(context.Background(), AssistEnhance, "bad text", "a blog post")
	require.NoError(t, err)
	assert.Equal(t, "Better text.", out)
	assert.Contains(t, gen.Prompts()[0], "Context: a blog post")

	_, err = a.Assist(context.Background(), "rewrite", "x", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	boom := errors.New("down")
	_, err = newAnalyzer(&ai.Static{Err: boom}).Assist(context.Background(), AssistSummarize, "x", "")
	assert.ErrorIs(t, err, boom)
}

func TestNarrativeBranches(t *testing.T) {
	gen := &ai.Static{Reply: `Here you go: {"branches":[
		{"name":"She takes the job","consequence":"The family moves.","nextDecision":"Sell the house?"},
		{"name":"","consequence":"dropped"},
		{"name":"She stays","consequence":"Resentment grows."}
	]}`}
	a := newAnalyzer(gen)

	branches, err := a.NarrativeBranches(context.Background(), "Accept the offer abroad", models.StoryContext{
		Genre:      "drama",
		Characters: []string{"Ana", "Luis"},
	})
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "She takes the job", branches[0].Name)
	assert.Equal(t, "Sell the house?", branches[0].NextDecision)
	assert.Equal(t, models.BranchUnexplored, branches[1].Status)
	assert.NotEmpty(t, branches[1].ID)

	prompt := gen.Prompts()[0]
	assert.Contains(t, prompt, "- Genre: drama")
	assert.Contains(t, prompt, "- Characters: Ana, Luis")
	assert.Contains(t, prompt, "- World Rules: Standard reality")
	assert.Contains(t, prompt, `"Accept the offer abroad"`)
}

func TestNarrativeBranches_Errors(t *testing.T) {
	_, err := newAnalyzer(&ai.Static{}).NarrativeBranches(context.Background(), "  ", models.StoryContext{})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = newAnalyzer(&ai.Static{Reply: "no json here"}).NarrativeBranches(context.Background(), "x", models.StoryContext{})
	assert.ErrorIs(t, err, ai.ErrNoJSON)

	boom := errors.New("down")
	_, err = newAnalyzer(&ai.Static{Err: boom}).NarrativeBranches(context.Background(), "x", models.StoryContext{})
	assert.ErrorIs(t, err, boom)
}

func TestCatalogue(t *testing.T) {
	for _, typ := range models.DetectedNoteTypes {
		cfg, ok := Config(typ)
		require.True(t, ok, typ)
		assert.Equal(t, typ, cfg.Type)
		assert.Len(t, cfg.QuickScenarios, 4, typ)
		assert.NotEmpty(t, catalogue[typ].extract)
		assert.NotEmpty(t, catalogue[typ].branch)
		for _, ct := range cfg.CheckpointTypes {
			assert.Contains(t, CheckpointIcons, ct)
		}
	}
	assert.Len(t, Configs(), 10)

	want := map[models.DetectedNoteType]models.LayoutType{
		models.DetectedStory:      models.LayoutHorizontalTimeline,
		models.DetectedResearch:   models.LayoutHierarchicalTree,
		models.DetectedArgument:   models.LayoutVerticalDebate,
		models.DetectedProcess:    models.LayoutHorizontalTimeline,
		models.DetectedDecision:   models.LayoutBranchingTree,
		models.DetectedConcept:    models.LayoutNetworkWeb,
		models.DetectedMeeting:    models.LayoutActionBoard,
		models.DetectedTechnical:  models.LayoutFlowDiagram,
		models.DetectedJournal:    models.LayoutHorizontalTimeline,
		models.DetectedBrainstorm: models.LayoutNetworkWeb,
	}
	for typ, layout := range want {
		assert.Equal(t, layout, LayoutFor(typ), typ)
	}
	assert.Equal(t, models.LayoutNetworkWeb, LayoutFor("unknown"))
}
