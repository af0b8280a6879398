package models

import "time"

// DetectedNoteType is the document classification produced by analysis.
type DetectedNoteType string

const (
	DetectedStory      DetectedNoteType = "story"
	DetectedResearch   DetectedNoteType = "research"
	DetectedArgument   DetectedNoteType = "argument"
	DetectedProcess    DetectedNoteType = "process"
	DetectedDecision   DetectedNoteType = "decision"
	DetectedConcept    DetectedNoteType = "concept"
	DetectedMeeting    DetectedNoteType = "meeting"
	DetectedTechnical  DetectedNoteType = "technical"
	DetectedJournal    DetectedNoteType = "journal"
	DetectedBrainstorm DetectedNoteType = "brainstorm"
)

// DetectedNoteTypes lists every classification in taxonomy order.
var DetectedNoteTypes = []DetectedNoteType{
	DetectedStory, DetectedResearch, DetectedArgument, DetectedProcess, DetectedDecision,
	DetectedConcept, DetectedMeeting, DetectedTechnical, DetectedJournal, DetectedBrainstorm,
}

// Valid reports whether t belongs to the taxonomy.
func (t DetectedNoteType) Valid() bool {
	for _, v := range DetectedNoteTypes {
		if v == t {
			return true
		}
	}
	return false
}

// LayoutType names a graph layout strategy.
type LayoutType string

const (
	LayoutHorizontalTimeline LayoutType = "horizontal-timeline"
	LayoutHierarchicalTree   LayoutType = "hierarchical-tree"
	LayoutVerticalDebate     LayoutType = "vertical-debate"
	LayoutBranchingTree      LayoutType = "branching-tree"
	LayoutNetworkWeb         LayoutType = "network-web"
	LayoutActionBoard        LayoutType = "action-board"
	LayoutFlowDiagram        LayoutType = "flow-diagram"
)

// CheckpointPosition is the character span a checkpoint was taken from.
type CheckpointPosition struct {
	StartOffset int `json:"startOffset"`
	EndOffset   int `json:"endOffset"`
}

// Checkpoint is a typed, importance-scored unit of meaning within a note.
type Checkpoint struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Content    string             `json:"content"`
	Excerpt    string             `json:"excerpt"`
	Type       string             `json:"type"`
	NoteType   DetectedNoteType   `json:"noteType"`
	Importance int                `json:"importance"`
	Position   CheckpointPosition `json:"position"`
}

// RelationshipType classifies an edge between checkpoints.
type RelationshipType string

const (
	RelCausal        RelationshipType = "causal"
	RelTemporal      RelationshipType = "temporal"
	RelSupportive    RelationshipType = "supportive"
	RelContradictory RelationshipType = "contradictory"
	RelThematic      RelationshipType = "thematic"
	RelSequential    RelationshipType = "sequential"
)

// CheckpointRelationship is a directed, weighted edge between two checkpoints.
type CheckpointRelationship struct {
	ID          string           `json:"id"`
	SourceID    string           `json:"sourceId"`
	TargetID    string           `json:"targetId"`
	Type        RelationshipType `json:"type"`
	Strength    float64          `json:"strength"`
	Description string           `json:"description"`
}

// NextCheckpoint is a consequence that would follow a speculative branch.
type NextCheckpoint struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SpeculativeBranch is an alternative outcome for a checkpoint. Confidence is
// nil when the model gave none.
type SpeculativeBranch struct {
	ID                 string           `json:"id"`
	ParentCheckpointID string           `json:"parentCheckpointId"`
	WhatIfQuestion     string           `json:"whatIfQuestion"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Consequences       string           `json:"consequences"`
	Pros               []string         `json:"pros"`
	Cons               []string         `json:"cons"`
	Confidence         *float64         `json:"confidence,omitempty"`
	NextCheckpoints    []NextCheckpoint `json:"nextCheckpoints"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}

// AnalysisResult is the intelligent graph derived for one note.
type AnalysisResult struct {
	NoteID          string                   `json:"noteId"`
	DetectedType    DetectedNoteType         `json:"detectedType"`
	TypeConfidence  float64                  `json:"typeConfidence"`
	Checkpoints     []Checkpoint             `json:"checkpoints"`
	Relationships   []CheckpointRelationship `json:"relationships"`
	SuggestedLayout LayoutType               `json:"suggestedLayout"`
	AnalyzedAt      time.Time                `json:"analyzedAt"`
}

// NoteTypeConfig describes presentation and prompting for a detected type.
type NoteTypeConfig struct {
	Type            DetectedNoteType `json:"type"`
	Label           string           `json:"label"`
	Icon            string           `json:"icon"`
	PrimaryColor    string           `json:"primaryColor"`
	AccentColor     string           `json:"accentColor"`
	Layout          LayoutType       `json:"layout"`
	QuickScenarios  []string         `json:"quickScenarios"`
	CheckpointTypes []string         `json:"checkpointTypes"`
}
