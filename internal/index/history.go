package index

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/orrery/internal/models"
)

// AppendAIResponse inserts r. The note must exist; its rows go when it is deleted.
func (db *DB) AppendAIResponse(ctx context.Context, r models.AIResponse) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO ai_history (id, note_id, action, content, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.NoteID, string(r.Action), r.Content, string(r.Payload), r.Timestamp.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("index: append ai response: %w", err)
	}
	return nil
}

// AIHistory returns the note's recorded answers in insertion order.
func (db *DB) AIHistory(ctx context.Context, noteID string) ([]models.AIResponse, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, action, content, payload, created_at
		FROM ai_history WHERE note_id = ? ORDER BY rowid`, noteID)
	if err != nil {
		return nil, fmt.Errorf("index: ai history: %w", err)
	}
	defer rows.Close()

	var out []models.AIResponse
	for rows.Next() {
		var (
			r       = models.AIResponse{NoteID: noteID}
			action  string
			payload string
			created string
		)
		if err := rows.Scan(&r.ID, &action, &r.Content, &payload, &created); err != nil {
			return nil, fmt.Errorf("index: scan ai response: %w", err)
		}
		r.Action = models.AIAction(action)
		if payload != "" {
			r.Payload = json.RawMessage(payload)
		}
		if r.Timestamp, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("index: parse ai response created_at: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
