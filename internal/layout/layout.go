// Package layout positions checkpoints on a canvas according to the layout
// strategy of the note's detected type. Every function is pure: the same
// input always yields the same coordinates.
package layout

import (
	"math"
	"sort"

	"github.com/starford/orrery/internal/models"
)

// Node geometry and spacing.
const (
	NodeWidth  = 200.0
	NodeHeight = 80.0
	SpacingX   = 250.0
	SpacingY   = 120.0

	margin    = 50.0
	topOffset = 50.0
)

// Node is a positioned checkpoint. X and Y are the top-left corner.
type Node struct {
	ID         string            `json:"id"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	Checkpoint models.Checkpoint `json:"checkpoint"`
}

// Edge joins the centers of two placed nodes.
type Edge struct {
	ID           string                        `json:"id"`
	SourceID     string                        `json:"sourceId"`
	TargetID     string                        `json:"targetId"`
	SourceX      float64                       `json:"sourceX"`
	SourceY      float64                       `json:"sourceY"`
	TargetX      float64                       `json:"targetX"`
	TargetY      float64                       `json:"targetY"`
	Relationship models.CheckpointRelationship `json:"relationship"`
}

// Bounds is the padded bounding box of all nodes.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	MinX   float64 `json:"minX"`
	MinY   float64 `json:"minY"`
}

// Layout is a fully positioned graph.
type Layout struct {
	Type   models.LayoutType `json:"type"`
	Nodes  []Node            `json:"nodes"`
	Edges  []Edge            `json:"edges"`
	Bounds Bounds            `json:"bounds"`
}

// Calculate positions checkpoints for layoutType inside a width×height
// container. Unknown layout types fall back to network-web.
func Calculate(checkpoints []models.Checkpoint, rels []models.CheckpointRelationship, layoutType models.LayoutType, width, height float64) Layout {
	var nodes []Node
	switch layoutType {
	case models.LayoutHorizontalTimeline, models.LayoutFlowDiagram:
		nodes = horizontalTimeline(checkpoints, height)
	case models.LayoutHierarchicalTree:
		nodes = hierarchicalTree(checkpoints, width)
	case models.LayoutVerticalDebate:
		nodes = verticalDebate(checkpoints, width)
	case models.LayoutBranchingTree:
		nodes = branchingTree(checkpoints, width)
	case models.LayoutActionBoard:
		nodes = actionBoard(checkpoints, width)
	default:
		layoutType = models.LayoutNetworkWeb
		nodes = networkWeb(checkpoints, width, height)
	}
	if nodes == nil {
		nodes = []Node{}
	}
	return Layout{
		Type:   layoutType,
		Nodes:  nodes,
		Edges:  edges(nodes, rels),
		Bounds: bounds(nodes),
	}
}

func node(cp models.Checkpoint, x, y float64) Node {
	return Node{ID: cp.ID, X: x, Y: y, Width: NodeWidth, Height: NodeHeight, Checkpoint: cp}
}

// horizontalTimeline lays checkpoints left to right with a slight zigzag.
func horizontalTimeline(cps []models.Checkpoint, height float64) []Node {
	centerY := height/2 - NodeHeight/2
	nodes := make([]Node, 0, len(cps))
	for i, cp := range cps {
		y := centerY
		if i%2 == 1 {
			y += 40
		}
		nodes = append(nodes, node(cp, margin+float64(i)*SpacingX, y))
	}
	return nodes
}

// byImportance returns a copy sorted by importance, highest first. Ties keep
// input order.
func byImportance(cps []models.Checkpoint) []models.Checkpoint {
	sorted := append([]models.Checkpoint(nil), cps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Importance > sorted[j].Importance })
	return sorted
}

// byPriority returns a copy ordered by the rank of each checkpoint type.
// Types missing from rank sort last; ties keep input order.
func byPriority(cps []models.Checkpoint, rank map[string]int) []models.Checkpoint {
	const unranked = 5
	prio := func(t string) int {
		if r, ok := rank[t]; ok {
			return r
		}
		return unranked
	}
	sorted := append([]models.Checkpoint(nil), cps...)
	sort.SliceStable(sorted, func(i, j int) bool { return prio(sorted[i].Type) < prio(sorted[j].Type) })
	return sorted
}

// hierarchicalTree stacks importance bands: 10-8, 7-5, 4-2, then 1.
func hierarchicalTree(cps []models.Checkpoint, width float64) []Node {
	const levels = 4
	var bands [levels][]models.Checkpoint
	for _, cp := range byImportance(cps) {
		level := (10 - cp.Importance) / 3
		level = max(0, min(level, levels-1))
		bands[level] = append(bands[level], cp)
	}

	nodes := make([]Node, 0, len(cps))
	for level, band := range bands {
		startX := (width-float64(len(band))*SpacingX)/2 + NodeWidth/2
		for j, cp := range band {
			nodes = append(nodes, node(cp, startX+float64(j)*SpacingX, topOffset+float64(level)*SpacingY))
		}
	}
	return nodes
}

var debateRank = map[string]int{
	"thesis":           0,
	"supporting-point": 1,
	"counterargument":  2,
	"rebuttal":         3,
	"essay-conclusion": 4,
	"conclusion":       4,
}

// verticalDebate runs top to bottom, supports nudged left and counters right.
func verticalDebate(cps []models.Checkpoint, width float64) []Node {
	centerX := width/2 - NodeWidth/2
	nodes := make([]Node, 0, len(cps))
	for i, cp := range byPriority(cps, debateRank) {
		offset := 0.0
		switch cp.Type {
		case "supporting-point":
			offset = -120
		case "counterargument":
			offset = 120
		}
		nodes = append(nodes, node(cp, centerX+offset, topOffset+float64(i)*SpacingY))
	}
	return nodes
}

var decisionRank = map[string]int{
	"problem":       0,
	"criteria":      1,
	"option":        2,
	"trade-off":     3,
	"decision-made": 4,
	"decision":      4,
}

// branchingTree is a vertical spine with every option spread on one row.
func branchingTree(cps []models.Checkpoint, width float64) []Node {
	const optionGap = 150.0
	centerX := width/2 - NodeWidth/2

	total := 0
	for _, cp := range cps {
		if cp.Type == "option" {
			total++
		}
	}
	spread := float64(total-1) * optionGap

	nodes := make([]Node, 0, len(cps))
	k := 0
	for i, cp := range byPriority(cps, decisionRank) {
		if cp.Type == "option" {
			nodes = append(nodes, node(cp, centerX-spread/2+float64(k)*optionGap, topOffset+2*SpacingY))
			k++
			continue
		}
		nodes = append(nodes, node(cp, centerX, topOffset+float64(i)*SpacingY))
	}
	return nodes
}

// networkWeb puts the most important checkpoint in the middle and the rest
// on a circle around it.
func networkWeb(cps []models.Checkpoint, width, height float64) []Node {
	centerX, centerY := width/2, height/2
	radius := math.Min(width, height) * 0.35
	sorted := byImportance(cps)

	nodes := make([]Node, 0, len(sorted))
	for i, cp := range sorted {
		if i == 0 {
			nodes = append(nodes, node(cp, centerX-NodeWidth/2, centerY-NodeHeight/2))
			continue
		}
		angle := float64(i-1) / float64(len(sorted)-1) * 2 * math.Pi
		nodes = append(nodes, node(cp,
			centerX+math.Cos(angle)*radius-NodeWidth/2,
			centerY+math.Sin(angle)*radius-NodeHeight/2))
	}
	return nodes
}

var boardColumns = []string{"topic", "discussion-point", "action-item", "deadline"}

// actionBoard sorts checkpoints into four kanban columns. Checkpoints of any
// other type are not placed.
func actionBoard(cps []models.Checkpoint, width float64) []Node {
	columnWidth := width / float64(len(boardColumns))
	nodes := make([]Node, 0, len(cps))
	for col, typ := range boardColumns {
		row := 0
		for _, cp := range cps {
			if cp.Type != typ {
				continue
			}
			nodes = append(nodes, node(cp, 30+float64(col)*columnWidth, topOffset+float64(row)*(NodeHeight+20)))
			row++
		}
	}
	return nodes
}

// edges keeps relationships whose endpoints were both placed.
func edges(nodes []Node, rels []models.CheckpointRelationship) []Edge {
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; !dup {
			byID[n.ID] = n
		}
	}
	out := make([]Edge, 0, len(rels))
	for _, rel := range rels {
		src, ok := byID[rel.SourceID]
		if !ok {
			continue
		}
		dst, ok := byID[rel.TargetID]
		if !ok {
			continue
		}
		out = append(out, Edge{
			ID:           rel.ID,
			SourceID:     rel.SourceID,
			TargetID:     rel.TargetID,
			SourceX:      src.X + src.Width/2,
			SourceY:      src.Y + src.Height/2,
			TargetX:      dst.X + dst.Width/2,
			TargetY:      dst.Y + dst.Height/2,
			Relationship: rel,
		})
	}
	return out
}

func bounds(nodes []Node) Bounds {
	if len(nodes) == 0 {
		return Bounds{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minX = math.Min(minX, n.X)
		minY = math.Min(minY, n.Y)
		maxX = math.Max(maxX, n.X+n.Width)
		maxY = math.Max(maxY, n.Y+n.Height)
	}
	return Bounds{
		Width:  maxX - minX + 2*margin,
		Height: maxY - minY + 2*margin,
		MinX:   minX - margin,
		MinY:   minY - margin,
	}
}
