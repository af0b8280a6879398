package analysis

import (
	"context"

	"github.com/starford/orrery/internal/models"
)

// GenerateWhatIfBranches asks for alternative outcomes of cp under question.
// Any number of branches is accepted.
func (a *Analyzer) GenerateWhatIfBranches(ctx context.Context, cp models.Checkpoint, question, content string, t models.DetectedNoteType, all []models.Checkpoint) []models.SpeculativeBranch {
	if _, ok := catalogue[t]; !ok {
		t = cp.NoteType
	}
	if _, ok := catalogue[t]; !ok {
		return []models.SpeculativeBranch{}
	}
	var reply struct {
		Branches []struct {
			Title           string                  `json:"title"`
			Description     string                  `json:"description"`
			Consequences    string                  `json:"consequences"`
			Pros            []string                `json:"pros"`
			Cons            []string                `json:"cons"`
			Confidence      *float64                `json:"confidence"`
			NextCheckpoints []models.NextCheckpoint `json:"nextCheckpoints"`
		} `json:"branches"`
	}
	if !a.call(ctx, StageBranches, branchPrompt(cp, question, content, t, all), &reply) {
		return []models.SpeculativeBranch{}
	}

	now := a.now()
	out := make([]models.SpeculativeBranch, 0, len(reply.Branches))
	for _, b := range reply.Branches {
		br := models.SpeculativeBranch{
			ID:                 a.newID(),
			ParentCheckpointID: cp.ID,
			WhatIfQuestion:     question,
			Title:              b.Title,
			Description:        b.Description,
			Consequences:       b.Consequences,
			Pros:               b.Pros,
			Cons:               b.Cons,
			NextCheckpoints:    b.NextCheckpoints,
			GeneratedAt:        now,
		}
		if b.Confidence != nil {
			c := clamp(*b.Confidence, 0, 1)
			br.Confidence = &c
		}
		if br.Pros == nil {
			br.Pros = []string{}
		}
		if br.Cons == nil {
			br.Cons = []string{}
		}
		if br.NextCheckpoints == nil {
			br.NextCheckpoints = []models.NextCheckpoint{}
		}
		out = append(out, br)
	}
	a.record(StageBranches, len(out))
	return out
}
