// Package storage defines the note persistence abstraction and its
// in-memory and Markdown-vault backends.
package storage

import (
	"context"

	"github.com/starford/orrery/internal/models"
)

// Batch is the set of writes produced by one engine mutation.
// Backends apply it as a unit where they can.
type Batch struct {
	Put    []*models.Note
	Delete []string
}

// Empty reports whether the batch carries no writes.
func (b Batch) Empty() bool {
	return len(b.Put) == 0 && len(b.Delete) == 0
}

// Store is the interface for persisting notes, folders, settings and the
// per-note assistant history.
type Store interface {
	// LoadAll returns every persisted note.
	LoadAll(ctx context.Context) ([]*models.Note, error)
	// Commit persists the batch.
	Commit(ctx context.Context, b Batch) error
	// Folders returns every folder.
	Folders(ctx context.Context) ([]models.Folder, error)
	// PutFolder inserts or replaces a folder.
	PutFolder(ctx context.Context, f models.Folder) error
	// Settings returns stored settings; ok is false when none were saved yet.
	Settings(ctx context.Context) (s models.Settings, ok bool, err error)
	// PutSettings replaces stored settings.
	PutSettings(ctx context.Context, s models.Settings) error
	// AppendAIResponse records an assistant answer for r.NoteID.
	AppendAIResponse(ctx context.Context, r models.AIResponse) error
	// AIHistory returns the answers recorded for noteID, oldest first.
	// Deleting a note drops its history.
	AIHistory(ctx context.Context, noteID string) ([]models.AIResponse, error)
	Close() error
}
