package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/orrery/internal/models"
)

const (
	w = 1200.0
	h = 800.0
)

func cp(id, typ string, importance int) models.Checkpoint {
	return models.Checkpoint{ID: id, Title: id, Type: typ, Importance: importance}
}

func positions(l Layout) map[string][2]float64 {
	out := make(map[string][2]float64, len(l.Nodes))
	for _, n := range l.Nodes {
		out[n.ID] = [2]float64{n.X, n.Y}
	}
	return out
}

func order(l Layout) []string {
	out := make([]string, len(l.Nodes))
	for i, n := range l.Nodes {
		out[i] = n.ID
	}
	return out
}

func TestHorizontalTimeline(t *testing.T) {
	cps := []models.Checkpoint{cp("a", "plot-event", 5), cp("b", "conflict", 5), cp("c", "resolution", 5)}
	l := Calculate(cps, nil, models.LayoutHorizontalTimeline, w, h)

	assert.Equal(t, models.LayoutHorizontalTimeline, l.Type)
	assert.Equal(t, map[string][2]float64{
		"a": {50, 360},
		"b": {300, 400},
		"c": {550, 360},
	}, positions(l))
	assert.Equal(t, Bounds{Width: 800, Height: 220, MinX: 0, MinY: 310}, l.Bounds)
}

func TestFlowDiagramMatchesTimeline(t *testing.T) {
	cps := []models.Checkpoint{cp("a", "function", 5), cp("b", "output", 5)}
	flow := Calculate(cps, nil, models.LayoutFlowDiagram, w, h)
	timeline := Calculate(cps, nil, models.LayoutHorizontalTimeline, w, h)
	assert.Equal(t, timeline.Nodes, flow.Nodes)
	assert.Equal(t, models.LayoutFlowDiagram, flow.Type)
}

func TestHierarchicalTree(t *testing.T) {
	cps := []models.Checkpoint{
		cp("low", "insight", 1),
		cp("top1", "hypothesis", 10),
		cp("mid", "finding", 6),
		cp("top2", "conclusion", 8),
	}
	l := Calculate(cps, nil, models.LayoutHierarchicalTree, w, h)

	assert.Equal(t, []string{"top1", "top2", "mid", "low"}, order(l))
	// Level 0 holds two nodes: startX = (1200-500)/2 + 100 = 450.
	assert.Equal(t, map[string][2]float64{
		"top1": {450, 50},
		"top2": {700, 50},
		"mid":  {575, 170},
		"low":  {575, 410},
	}, positions(l))
}

func TestVerticalDebate(t *testing.T) {
	cps := []models.Checkpoint{
		cp("concl", "essay-conclusion", 5),
		cp("counter", "counterargument", 5),
		cp("misc", "aside", 5),
		cp("thesis", "thesis", 5),
		cp("support", "supporting-point", 5),
		cp("rebut", "rebuttal", 5),
		cp("concl2", "conclusion", 5),
	}
	l := Calculate(cps, nil, models.LayoutVerticalDebate, w, h)

	assert.Equal(t, []string{"thesis", "support", "counter", "rebut", "concl", "concl2", "misc"}, order(l))
	p := positions(l)
	assert.Equal(t, [2]float64{500, 50}, p["thesis"])
	assert.Equal(t, [2]float64{380, 170}, p["support"])
	assert.Equal(t, [2]float64{620, 290}, p["counter"])
	assert.Equal(t, [2]float64{500, 770}, p["misc"])
}

func TestBranchingTree(t *testing.T) {
	cps := []models.Checkpoint{
		cp("o1", "option", 5),
		cp("p", "problem", 5),
		cp("o2", "option", 5),
		cp("d", "decision", 5),
		cp("c", "criteria", 5),
		cp("o3", "option", 5),
	}
	l := Calculate(cps, nil, models.LayoutBranchingTree, w, h)

	assert.Equal(t, []string{"p", "c", "o1", "o2", "o3", "d"}, order(l))
	p := positions(l)
	assert.Equal(t, [2]float64{500, 50}, p["p"])
	assert.Equal(t, [2]float64{500, 170}, p["c"])
	assert.Equal(t, [2]float64{350, 290}, p["o1"])
	assert.Equal(t, [2]float64{500, 290}, p["o2"])
	assert.Equal(t, [2]float64{650, 290}, p["o3"])
	assert.Equal(t, [2]float64{500, 650}, p["d"])
}

func TestNetworkWeb(t *testing.T) {
	cps := []models.Checkpoint{cp("a", "feature", 3), cp("b", "core-idea", 9), cp("c", "feature", 3)}
	l := Calculate(cps, nil, models.LayoutNetworkWeb, w, h)

	require.Equal(t, []string{"b", "a", "c"}, order(l))
	p := positions(l)
	assert.Equal(t, [2]float64{500, 360}, p["b"])
	r := 0.35 * 800
	assert.InDelta(t, 600+r-100, p["a"][0], 1e-9)
	assert.InDelta(t, 360, p["a"][1], 1e-9)
	assert.InDelta(t, 600+math.Cos(math.Pi)*r-100, p["c"][0], 1e-9)
	assert.InDelta(t, 220, p["c"][0], 1e-9)
}

func TestNetworkWeb_Single(t *testing.T) {
	l := Calculate([]models.Checkpoint{cp("only", "x", 5)}, nil, models.LayoutNetworkWeb, w, h)
	assert.Equal(t, map[string][2]float64{"only": {500, 360}}, positions(l))
}

func TestActionBoard(t *testing.T) {
	cps := []models.Checkpoint{
		cp("t1", "topic", 5),
		cp("a1", "action-item", 5),
		cp("t2", "topic", 5),
		cp("x", "random", 5),
		cp("d1", "deadline", 5),
	}
	rels := []models.CheckpointRelationship{{ID: "r1", SourceID: "x", TargetID: "t1"}}
	l := Calculate(cps, rels, models.LayoutActionBoard, w, h)

	assert.Equal(t, map[string][2]float64{
		"t1": {30, 50},
		"t2": {30, 150},
		"a1": {630, 50},
		"d1": {930, 50},
	}, positions(l))
	assert.Empty(t, l.Edges, "edges to unplaced checkpoints are dropped")
}

func TestUnknownLayoutFallsBack(t *testing.T) {
	cps := []models.Checkpoint{cp("a", "x", 5), cp("b", "x", 4)}
	l := Calculate(cps, nil, "spiral", w, h)
	assert.Equal(t, models.LayoutNetworkWeb, l.Type)
	assert.Equal(t, Calculate(cps, nil, models.LayoutNetworkWeb, w, h).Nodes, l.Nodes)
}

func TestEdges(t *testing.T) {
	cps := []models.Checkpoint{cp("a", "step", 5), cp("b", "step", 5)}
	rels := []models.CheckpointRelationship{
		{ID: "r1", SourceID: "a", TargetID: "b", Type: models.RelSequential, Strength: 0.7},
		{ID: "r2", SourceID: "a", TargetID: "ghost"},
	}
	l := Calculate(cps, rels, models.LayoutHorizontalTimeline, w, h)

	require.Len(t, l.Edges, 1)
	e := l.Edges[0]
	assert.Equal(t, "r1", e.ID)
	assert.Equal(t, 150.0, e.SourceX)
	assert.Equal(t, 400.0, e.SourceY)
	assert.Equal(t, 400.0, e.TargetX)
	assert.Equal(t, 440.0, e.TargetY)
	assert.Equal(t, rels[0], e.Relationship)
}

func TestEmpty(t *testing.T) {
	for _, lt := range []models.LayoutType{
		models.LayoutHorizontalTimeline, models.LayoutHierarchicalTree, models.LayoutVerticalDebate,
		models.LayoutBranchingTree, models.LayoutNetworkWeb, models.LayoutActionBoard, models.LayoutFlowDiagram,
	} {
		l := Calculate(nil, nil, lt, w, h)
		assert.Empty(t, l.Nodes, lt)
		assert.NotNil(t, l.Nodes, lt)
		assert.Empty(t, l.Edges, lt)
		assert.Equal(t, Bounds{}, l.Bounds, lt)
	}
}

func TestDeterministic(t *testing.T) {
	cps := []models.Checkpoint{cp("a", "topic", 3), cp("b", "feature", 3), cp("c", "option", 3), cp("d", "thesis", 3)}
	for _, lt := range []models.LayoutType{
		models.LayoutHierarchicalTree, models.LayoutVerticalDebate, models.LayoutBranchingTree, models.LayoutNetworkWeb,
	} {
		first := Calculate(cps, nil, lt, w, h)
		for range 5 {
			assert.Equal(t, first, Calculate(cps, nil, lt, w, h), lt)
		}
	}
}
