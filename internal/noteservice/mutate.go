package noteservice

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/parser"
)

const defaultTitle = "Untitled"

// applyDerived recomputes every content-derived field of n.
func applyDerived(n *models.Note) {
	d := parser.Derive(n.Content)
	n.Excerpt = d.Excerpt
	n.Tags = d.Tags
	n.LinkedNotes = d.Links
	n.Metadata.WordCount = d.WordCount
	n.Metadata.ReadTime = d.ReadTime
}

// CreateNote inserts a new note. An empty title becomes "Untitled" and an
// empty type becomes "note".
func (s *Service) CreateNote(ctx context.Context, title, content string, noteType models.NoteType) (*models.Note, error) {
	if title == "" {
		title = defaultTitle
	}
	if noteType == "" {
		noteType = models.NoteTypeNote
	}
	if !noteType.Valid() {
		return nil, fmt.Errorf("noteservice: create: unknown type %q: %w", noteType, apperr.ErrInvalidInput)
	}

	now := s.now()
	n := &models.Note{
		ID:        parser.NewID(),
		Title:     title,
		Content:   content,
		Backlinks: []string{},
		Metadata: models.NoteMetadata{
			Type:      noteType,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	applyDerived(n)

	s.mu.Lock()
	err := s.insert(ctx, n)
	out := n.Clone()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("noteservice: create: %w", err)
	}
	s.notify(EventCreated, out.ID)
	return out, nil
}

// ImportNote inserts a note with a caller-chosen ID, as found in the vault.
// Derived fields are recomputed from content and backlinks are rebuilt.
func (s *Service) ImportNote(ctx context.Context, in *models.Note) (*models.Note, error) {
	n := in.Clone()
	if n.ID == "" {
		n.ID = parser.NewID()
	}
	if n.Title == "" {
		n.Title = defaultTitle
	}
	if n.Metadata.Type == "" {
		n.Metadata.Type = models.NoteTypeNote
	}
	if !n.Metadata.Type.Valid() {
		return nil, fmt.Errorf("noteservice: import %s: unknown type %q: %w", n.ID, n.Metadata.Type, apperr.ErrInvalidInput)
	}
	now := s.now()
	if n.Metadata.CreatedAt.IsZero() {
		n.Metadata.CreatedAt = now
	}
	if n.Metadata.UpdatedAt.IsZero() {
		n.Metadata.UpdatedAt = n.Metadata.CreatedAt
	}
	n.Backlinks = []string{}
	applyDerived(n)

	s.mu.Lock()
	if _, exists := s.notes[n.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("noteservice: import %s: %w", n.ID, apperr.ErrAlreadyExists)
	}
	err := s.insert(ctx, n)
	out := n.Clone()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("noteservice: import %s: %w", n.ID, err)
	}
	s.notify(EventCreated, out.ID)
	return out, nil
}

// insert adds n and propagates backlinks in both directions. Caller holds s.mu.
func (s *Service) insert(ctx context.Context, n *models.Note) error {
	t := s.begin()
	t.touch(n.ID)
	s.notes[n.ID] = n
	s.index(n)
	for _, link := range n.LinkedNotes {
		if target := s.resolve(link); target != nil {
			t.addBacklink(target, n.ID)
		}
	}
	t.retarget(n.Title)
	return t.commit(ctx)
}

// UpdateNote applies a partial update. Content-derived fields are always
// recomputed and backlinks follow the difference between the old and new
// link sets.
func (s *Service) UpdateNote(ctx context.Context, id string, upd models.NoteUpdate) (*models.Note, error) {
	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("noteservice: update %s: %w", id, apperr.ErrNotFound)
	}

	t := s.begin()
	t.touch(id)
	oldTitle := n.Title
	oldLinks := slices.Clone(n.LinkedNotes)

	s.unindex(n)
	if upd.Title != nil {
		n.Title = *upd.Title
		if n.Title == "" {
			n.Title = defaultTitle
		}
	}
	if upd.Content != nil {
		n.Content = *upd.Content
	}
	if upd.IsPinned != nil {
		n.IsPinned = *upd.IsPinned
	}
	if upd.IsArchived != nil {
		n.IsArchived = *upd.IsArchived
	}
	if upd.FolderID != nil {
		n.FolderID = *upd.FolderID
	}
	applyDerived(n)
	n.Metadata.UpdatedAt = s.now()
	s.index(n)

	for _, link := range oldLinks {
		if slices.Contains(n.LinkedNotes, link) {
			continue
		}
		if target := s.resolve(link); target != nil {
			t.removeBacklink(target, id)
		}
	}
	for _, link := range n.LinkedNotes {
		if slices.Contains(oldLinks, link) {
			continue
		}
		if target := s.resolve(link); target != nil {
			t.addBacklink(target, id)
		}
	}
	if n.Title != oldTitle {
		t.retarget(oldTitle)
		t.retarget(n.Title)
	}

	err := t.commit(ctx)
	out := s.notes[id].Clone()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("noteservice: update %s: %w", id, err)
	}
	s.notify(EventUpdated, id)
	return out, nil
}

// DeleteNote removes a note. References to its title are stripped from other
// notes unless another note still holds that title.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	n, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("noteservice: delete %s: %w", id, apperr.ErrNotFound)
	}

	t := s.begin()
	for _, link := range n.LinkedNotes {
		if target := s.resolve(link); target != nil && target.ID != id {
			t.removeBacklink(target, id)
		}
	}
	t.touch(id)
	s.unindex(n)
	delete(s.notes, id)

	var changed []string
	if len(s.titles[n.Title]) > 0 {
		t.retarget(n.Title)
	} else {
		refs := s.referencing(n.Title, id)
		for _, refID := range refs {
			ref := s.notes[refID]
			t.touch(refID)
			s.unindex(ref)
			ref.LinkedNotes = slices.DeleteFunc(ref.LinkedNotes, func(l string) bool {
				return l == n.Title || (l == id && len(s.titles[id]) == 0)
			})
			s.index(ref)
			changed = append(changed, refID)
		}
	}

	err := t.commit(ctx)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("noteservice: delete %s: %w", id, err)
	}
	s.notify(EventDeleted, id)
	s.notify(EventUpdated, changed...)
	return nil
}

// referencing returns the IDs of notes whose links name title, or id when
// no note holds id as a title.
func (s *Service) referencing(title, id string) []string {
	set := make(map[string]struct{}, len(s.inbound[title]))
	for src := range s.inbound[title] {
		set[src] = struct{}{}
	}
	if len(s.titles[id]) == 0 {
		for src := range s.inbound[id] {
			set[src] = struct{}{}
		}
	}
	return sortedKeys(set)
}
