package storage

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/starford/orrery/internal/models"
)

// Memory is a Store that keeps everything in process memory.
type Memory struct {
	mu       sync.Mutex
	notes    map[string]*models.Note
	folders  map[string]models.Folder
	settings *models.Settings
	history  map[string][]models.AIResponse
	failErr  error
	commits  int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		notes:   make(map[string]*models.Note),
		folders: make(map[string]models.Folder),
		history: make(map[string][]models.AIResponse),
	}
}

// FailCommits makes every following Commit return err. Pass nil to recover.
func (m *Memory) FailCommits(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

// Commits returns the number of successful commits.
func (m *Memory) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// LoadAll returns copies of every note ordered by ID.
func (m *Memory) LoadAll(_ context.Context) ([]*models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Note, 0, len(m.notes))
	for _, n := range m.notes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Commit applies the batch unless a failure was injected.
func (m *Memory) Commit(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	for _, n := range b.Put {
		m.notes[n.ID] = n.Clone()
	}
	for _, id := range b.Delete {
		delete(m.notes, id)
		delete(m.history, id)
	}
	m.commits++
	return nil
}

func (m *Memory) Folders(_ context.Context) ([]models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Folder, 0, len(m.folders))
	for _, f := range m.folders {
		out = append(out, f)
	}
	sortFolders(out)
	return out, nil
}

func (m *Memory) PutFolder(_ context.Context, f models.Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.folders[f.ID] = f
	return nil
}

func (m *Memory) Settings(_ context.Context) (models.Settings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return models.Settings{}, false, nil
	}
	return *m.settings, true, nil
}

func (m *Memory) PutSettings(_ context.Context, s models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.settings = &s
	return nil
}

func (m *Memory) AppendAIResponse(_ context.Context, r models.AIResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.history[r.NoteID] = append(m.history[r.NoteID], r)
	return nil
}

func (m *Memory) AIHistory(_ context.Context, noteID string) ([]models.AIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history[noteID]), nil
}

func (m *Memory) Close() error { return nil }

func sortFolders(fs []models.Folder) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].ParentID != fs[j].ParentID {
			return fs[i].ParentID < fs[j].ParentID
		}
		if fs[i].Order != fs[j].Order {
			return fs[i].Order < fs[j].Order
		}
		return fs[i].ID < fs[j].ID
	})
}
