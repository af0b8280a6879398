package noteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/parser"
)

// RecordAI stores an assistant answer against an existing note, filling in
// the ID and timestamp. The read lock keeps a concurrent delete from
// orphaning the record.
func (s *Service) RecordAI(ctx context.Context, r models.AIResponse) (models.AIResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.notes[r.NoteID]; !ok {
		return models.AIResponse{}, fmt.Errorf("noteservice: record ai %s: %w", r.NoteID, apperr.ErrNotFound)
	}
	r.ID = parser.NewID()
	r.Timestamp = s.now()
	if err := s.store.AppendAIResponse(ctx, r); err != nil {
		return models.AIResponse{}, fmt.Errorf("noteservice: record ai %s: %w", r.NoteID, err)
	}
	s.logger.Debug("ai response recorded",
		slog.String("note_id", r.NoteID),
		slog.String("action", string(r.Action)))
	return r, nil
}

// AIHistory returns the assistant answers recorded for a note, oldest first.
func (s *Service) AIHistory(ctx context.Context, noteID string) ([]models.AIResponse, error) {
	if _, err := s.Get(noteID); err != nil {
		return nil, err
	}
	out, err := s.store.AIHistory(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("noteservice: ai history %s: %w", noteID, err)
	}
	if out == nil {
		out = []models.AIResponse{}
	}
	return out, nil
}

// NewAIRecord builds a history entry for noteID. A non-nil payload is stored
// as JSON; one that cannot be encoded is left out.
func NewAIRecord(noteID string, action models.AIAction, content string, payload any) models.AIResponse {
	r := models.AIResponse{NoteID: noteID, Action: action, Content: content}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			r.Payload = raw
		}
	}
	return r
}
