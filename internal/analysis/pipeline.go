// Package analysis turns note content into typed checkpoints, relationships
// and speculative branches by prompting the text-generation collaborator.
//
// Every stage degrades to an empty (or nil) result on failure: the error is
// logged and counted, never returned. Only Assist and NarrativeBranches
// propagate errors because their output is shown to the user verbatim.
package analysis

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/starford/orrery/internal/ai"
	"github.com/starford/orrery/internal/metrics"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/parser"
)

// DefaultStageTimeout bounds a single pipeline stage.
const DefaultStageTimeout = 90 * time.Second

const checkpointExcerpt = 100

// Stage names used in logs and metrics.
const (
	StageDetect        = "detect"
	StageExtract       = "extract"
	StageRelationships = "relationships"
	StageBranches      = "branches"
	StageTags          = "tags"
	StageLinks         = "links"
	StageNarrative     = "narrative"
)

// Analyzer runs the analysis stages against a Generator.
type Analyzer struct {
	gen          ai.Generator
	logger       *slog.Logger
	stageTimeout time.Duration
	now          func() time.Time
	newID        func() string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithStageTimeout bounds each stage. Non-positive values keep the default.
func WithStageTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.stageTimeout = d
		}
	}
}

// WithClock overrides time.Now for generatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// NewAnalyzer returns an Analyzer using gen.
func NewAnalyzer(gen ai.Generator, opts ...Option) *Analyzer {
	a := &Analyzer{
		gen:          gen,
		logger:       slog.Default(),
		stageTimeout: DefaultStageTimeout,
		now:          time.Now,
		newID:        parser.NewID,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Detection is the outcome of document type detection.
type Detection struct {
	Type       models.DetectedNoteType `json:"type"`
	Confidence float64                 `json:"confidence"`
	Reasoning  string                  `json:"reasoning,omitempty"`
}

// call runs one stage prompt and decodes the reply into v.
func (a *Analyzer) call(ctx context.Context, stage, prompt string, v any) bool {
	ctx, cancel := context.WithTimeout(ctx, a.stageTimeout)
	defer cancel()

	text, err := a.gen.Generate(ctx, ai.Request{Prompt: prompt})
	if err == nil {
		err = ai.Decode(text, v)
	}
	if err != nil {
		metrics.StageResults.WithLabelValues(stage, "failed").Inc()
		a.logger.Warn("analysis stage failed",
			slog.String("stage", stage),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

func (a *Analyzer) record(stage string, n int) {
	outcome := "ok"
	if n == 0 {
		outcome = "empty"
	}
	metrics.StageResults.WithLabelValues(stage, outcome).Inc()
}

// DetectNoteType classifies content. It returns nil when the reply is
// unusable or names a type outside the taxonomy.
func (a *Analyzer) DetectNoteType(ctx context.Context, content string) *Detection {
	var reply struct {
		Type       *string  `json:"type"`
		Confidence *float64 `json:"confidence"`
		Reasoning  string   `json:"reasoning"`
	}
	if !a.call(ctx, StageDetect, detectPrompt(content), &reply) {
		return nil
	}
	if reply.Type == nil || reply.Confidence == nil || !models.DetectedNoteType(*reply.Type).Valid() {
		metrics.StageResults.WithLabelValues(StageDetect, "empty").Inc()
		a.logger.Warn("unusable type detection", slog.Any("type", reply.Type))
		return nil
	}
	a.record(StageDetect, 1)
	return &Detection{
		Type:       models.DetectedNoteType(*reply.Type),
		Confidence: clamp(*reply.Confidence, 0, 1),
		Reasoning:  reply.Reasoning,
	}
}

// ExtractCheckpoints pulls typed checkpoints out of content.
func (a *Analyzer) ExtractCheckpoints(ctx context.Context, content string, t models.DetectedNoteType) []models.Checkpoint {
	if _, ok := catalogue[t]; !ok {
		return []models.Checkpoint{}
	}
	var reply struct {
		Checkpoints []struct {
			Title       string  `json:"title"`
			Content     string  `json:"content"`
			Excerpt     string  `json:"excerpt"`
			Type        string  `json:"type"`
			Importance  float64 `json:"importance"`
			StartOffset float64 `json:"startOffset"`
			EndOffset   float64 `json:"endOffset"`
		} `json:"checkpoints"`
	}
	if !a.call(ctx, StageExtract, extractPrompt(content, t), &reply) {
		return []models.Checkpoint{}
	}

	out := make([]models.Checkpoint, 0, len(reply.Checkpoints))
	for _, cp := range reply.Checkpoints {
		excerpt := cp.Excerpt
		if excerpt == "" {
			excerpt = parser.Truncate(cp.Content, checkpointExcerpt)
		}
		out = append(out, models.Checkpoint{
			ID:         a.newID(),
			Title:      cp.Title,
			Content:    cp.Content,
			Excerpt:    excerpt,
			Type:       cp.Type,
			NoteType:   t,
			Importance: int(clamp(math.Round(cp.Importance), 1, 10)),
			Position: models.CheckpointPosition{
				StartOffset: int(cp.StartOffset),
				EndOffset:   int(cp.EndOffset),
			},
		})
	}
	a.record(StageExtract, len(out))
	return out
}

// AnalyzeRelationships asks for edges between checkpoints. Fewer than two
// checkpoints yield no call and no edges.
func (a *Analyzer) AnalyzeRelationships(ctx context.Context, checkpoints []models.Checkpoint, t models.DetectedNoteType) []models.CheckpointRelationship {
	if len(checkpoints) < 2 {
		return []models.CheckpointRelationship{}
	}
	var reply struct {
		Relationships []struct {
			SourceIndex *int    `json:"sourceIndex"`
			TargetIndex *int    `json:"targetIndex"`
			Type        string  `json:"type"`
			Strength    float64 `json:"strength"`
			Description string  `json:"description"`
		} `json:"relationships"`
	}
	if !a.call(ctx, StageRelationships, relationshipPrompt(checkpoints, t), &reply) {
		return []models.CheckpointRelationship{}
	}

	inRange := func(i *int) bool { return i != nil && *i >= 0 && *i < len(checkpoints) }
	out := make([]models.CheckpointRelationship, 0, len(reply.Relationships))
	for _, rel := range reply.Relationships {
		if !inRange(rel.SourceIndex) || !inRange(rel.TargetIndex) {
			continue
		}
		out = append(out, models.CheckpointRelationship{
			ID:          a.newID(),
			SourceID:    checkpoints[*rel.SourceIndex].ID,
			TargetID:    checkpoints[*rel.TargetIndex].ID,
			Type:        relationshipType(rel.Type),
			Strength:    clamp(rel.Strength, 0, 1),
			Description: rel.Description,
		})
	}
	a.record(StageRelationships, len(out))
	return out
}

func relationshipType(s string) models.RelationshipType {
	switch t := models.RelationshipType(s); t {
	case models.RelCausal, models.RelTemporal, models.RelSupportive,
		models.RelContradictory, models.RelThematic, models.RelSequential:
		return t
	}
	return models.RelThematic
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
