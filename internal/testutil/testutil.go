// Package testutil provides shared test helpers and the storage contract suite.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/storage"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

// Note builds a persisted-shape note for store tests.
func Note(id, title, content string) *models.Note {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.Note{
		ID:          id,
		Title:       title,
		Content:     content,
		Excerpt:     content,
		Tags:        []string{},
		LinkedNotes: []string{},
		Backlinks:   []string{},
		Metadata: models.NoteMetadata{
			Type:      models.NoteTypeNote,
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}
}

// StoreContract runs the behaviour every storage.Store must share.
func StoreContract(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("EmptyLoad", func(t *testing.T) {
		s := newStore(t)
		notes, err := s.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})

	t.Run("PutAndLoad", func(t *testing.T) {
		s := newStore(t)
		a := Note("a", "Alpha", "links [[Beta]] #x")
		a.Tags = []string{"x"}
		a.LinkedNotes = []string{"Beta"}
		a.IsPinned = true
		a.FolderID = "f1"
		b := Note("b", "Beta", "plain")
		b.Backlinks = []string{"a"}
		require.NoError(t, s.Commit(ctx, storage.Batch{Put: []*models.Note{a, b}}))

		notes, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		byID := map[string]*models.Note{}
		for _, n := range notes {
			byID[n.ID] = n
		}
		require.Contains(t, byID, "a")
		require.Contains(t, byID, "b")
		assert.Equal(t, "Alpha", byID["a"].Title)
		assert.Equal(t, []string{"x"}, byID["a"].Tags)
		assert.Equal(t, []string{"Beta"}, byID["a"].LinkedNotes)
		assert.True(t, byID["a"].IsPinned)
		assert.Equal(t, "f1", byID["a"].FolderID)
		assert.Equal(t, []string{"a"}, byID["b"].Backlinks)
		assert.True(t, byID["b"].Metadata.CreatedAt.Equal(b.Metadata.CreatedAt))
	})

	t.Run("ReplaceAndDelete", func(t *testing.T) {
		s := newStore(t)
		a := Note("a", "Alpha", "v1")
		require.NoError(t, s.Commit(ctx, storage.Batch{Put: []*models.Note{a}}))

		a2 := Note("a", "Alpha", "v2")
		require.NoError(t, s.Commit(ctx, storage.Batch{Put: []*models.Note{a2}}))
		notes, err := s.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, "v2", notes[0].Content)

		require.NoError(t, s.Commit(ctx, storage.Batch{Delete: []string{"a"}}))
		notes, err = s.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, notes)
	})

	t.Run("DeleteMissingIsNoop", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Commit(ctx, storage.Batch{Delete: []string{"ghost"}}))
	})

	t.Run("Folders", func(t *testing.T) {
		s := newStore(t)
		ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, s.PutFolder(ctx, models.Folder{ID: "f2", Name: "Two", Order: 1, IsExpanded: true, CreatedAt: ts}))
		require.NoError(t, s.PutFolder(ctx, models.Folder{ID: "f1", Name: "One", Order: 0, IsExpanded: true, CreatedAt: ts}))
		require.NoError(t, s.PutFolder(ctx, models.Folder{ID: "f2", Name: "Renamed", Order: 1, CreatedAt: ts}))

		folders, err := s.Folders(ctx)
		require.NoError(t, err)
		require.Len(t, folders, 2)
		assert.Equal(t, "f1", folders[0].ID)
		assert.Equal(t, "Renamed", folders[1].Name)
		assert.False(t, folders[1].IsExpanded)
	})

	t.Run("AIHistory", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Commit(ctx, storage.Batch{Put: []*models.Note{Note("a", "Alpha", ""), Note("b", "Beta", "")}}))

		ts := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		first := models.AIResponse{ID: "r1", NoteID: "a", Action: models.AIActionSummarize, Content: "short", Timestamp: ts}
		second := models.AIResponse{ID: "r2", NoteID: "a", Action: models.AIActionSuggestTags,
			Payload: json.RawMessage(`{"suggestions":["x"]}`), Timestamp: ts.Add(time.Minute)}
		require.NoError(t, s.AppendAIResponse(ctx, first))
		require.NoError(t, s.AppendAIResponse(ctx, second))
		require.NoError(t, s.AppendAIResponse(ctx, models.AIResponse{ID: "r3", NoteID: "b", Action: models.AIActionExpand, Timestamp: ts}))

		got, err := s.AIHistory(ctx, "a")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "r1", got[0].ID)
		assert.Equal(t, models.AIActionSummarize, got[0].Action)
		assert.Equal(t, "short", got[0].Content)
		assert.True(t, got[0].Timestamp.Equal(ts))
		assert.Empty(t, got[0].Payload)
		assert.Equal(t, "r2", got[1].ID)
		assert.JSONEq(t, `{"suggestions":["x"]}`, string(got[1].Payload))

		require.NoError(t, s.Commit(ctx, storage.Batch{Delete: []string{"a"}}))
		got, err = s.AIHistory(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, got, "history goes with the note")

		got, err = s.AIHistory(ctx, "b")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("Settings", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.Settings(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		want := models.DefaultSettings()
		want.Theme = "dark"
		want.VimMode = true
		require.NoError(t, s.PutSettings(ctx, want))

		got, ok, err := s.Settings(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	})
}
