package noteservice

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
)

// Sort fields accepted by Filter.SortBy.
const (
	SortTitle     = "title"
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortWordCount = "wordCount"
)

// Filter narrows and orders List results. Zero values match everything.
type Filter struct {
	Tags        []string // any match
	Type        models.NoteType
	IsPinned    *bool
	IsArchived  *bool
	FolderID    string
	SearchQuery string
	SortBy      string // default updatedAt
	Ascending   bool   // default descending
}

// Get returns a copy of the note with id.
func (s *Service) Get(id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("noteservice: get %s: %w", id, apperr.ErrNotFound)
	}
	return n.Clone(), nil
}

// GetByTitle returns the note a wiki-link with this title resolves to.
func (s *Service) GetByTitle(title string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.resolve(title)
	if n == nil {
		return nil, fmt.Errorf("noteservice: title %q: %w", title, apperr.ErrNotFound)
	}
	return n.Clone(), nil
}

// Count returns the number of notes.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// List returns the notes matching f in the requested order.
func (s *Service) List(f Filter) []*models.Note {
	query := strings.ToLower(f.SearchQuery)

	s.mu.RLock()
	out := make([]*models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, func(tag string) bool { return slices.Contains(n.Tags, tag) }) {
			continue
		}
		if f.Type != "" && n.Metadata.Type != f.Type {
			continue
		}
		if f.IsPinned != nil && n.IsPinned != *f.IsPinned {
			continue
		}
		if f.IsArchived != nil && n.IsArchived != *f.IsArchived {
			continue
		}
		if f.FolderID != "" && n.FolderID != f.FolderID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(n.Title), query) &&
			!strings.Contains(strings.ToLower(n.Content), query) {
			continue
		}
		out = append(out, n.Clone())
	}
	s.mu.RUnlock()

	less := lessFunc(f.SortBy)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !f.Ascending {
			a, b = b, a
		}
		if c := less(a, b); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return out
}

func lessFunc(field string) func(a, b *models.Note) int {
	switch field {
	case SortTitle:
		return func(a, b *models.Note) int { return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) }
	case SortCreatedAt:
		return func(a, b *models.Note) int { return a.Metadata.CreatedAt.Compare(b.Metadata.CreatedAt) }
	case SortWordCount:
		return func(a, b *models.Note) int { return a.Metadata.WordCount - b.Metadata.WordCount }
	default:
		return func(a, b *models.Note) int { return a.Metadata.UpdatedAt.Compare(b.Metadata.UpdatedAt) }
	}
}

// ByTag returns the notes carrying tag, ordered by ID.
func (s *Service) ByTag(tag string) []*models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(sortedKeys(s.tags[tag]))
}

// Pinned returns pinned notes, ordered by ID.
func (s *Service) Pinned() []*models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(sortedKeys(s.pinned))
}

// Recent returns up to limit notes, most recently updated first.
// A non-positive limit means 10.
func (s *Service) Recent(limit int) []*models.Note {
	if limit <= 0 {
		limit = 10
	}
	out := s.List(Filter{SortBy: SortUpdatedAt})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Search matches q case-insensitively against title, content, and tags.
// Results are ordered by title.
func (s *Service) Search(q string) []*models.Note {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []*models.Note{}
	}
	s.mu.RLock()
	out := make([]*models.Note, 0)
	for _, n := range s.notes {
		if strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Content), q) ||
			slices.ContainsFunc(n.Tags, func(tag string) bool { return strings.Contains(strings.ToLower(tag), q) }) {
			out = append(out, n.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Backlinks returns the notes linking to id, in backlink order.
func (s *Service) Backlinks(id string) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("noteservice: backlinks %s: %w", id, apperr.ErrNotFound)
	}
	return s.collect(n.Backlinks), nil
}

// Graph returns every note with the wiki-link edges that resolve.
func (s *Service) Graph() ([]*models.Note, []models.NoteLink) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.notes))
	for id := range s.notes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := s.collect(ids)
	links := make([]models.NoteLink, 0)
	for _, n := range nodes {
		for _, title := range n.LinkedNotes {
			if target := s.resolve(title); target != nil {
				links = append(links, models.NoteLink{Source: n.ID, Target: target.ID})
			}
		}
	}
	return nodes, links
}

// Tags returns every tag in use, sorted.
func (s *Service) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tags))
	for tag := range s.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func (s *Service) collect(ids []string) []*models.Note {
	out := make([]*models.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notes[id]; ok {
			out = append(out, n.Clone())
		}
	}
	return out
}
