// Package noteservice owns the in-memory note store and keeps the wiki-link
// backlink graph consistent across every create, update, and delete.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/storage"
)

// Event kinds passed to the observer.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Observer is notified after a mutation has been persisted.
type Observer func(kind, id string)

// Service is the note persistence engine.
//
// Notes live in a map keyed by ID. Alongside it the service maintains:
//   - titles: title → note IDs ordered by (createdAt, id); a title resolves to the first
//   - inbound: link title → IDs of notes whose linkedNotes contain it
//   - tags: tag → note IDs
//   - pinned: IDs of pinned notes
//
// A note's backlinks always equal inbound[title] when it is the resolved
// holder of its title, and are empty otherwise.
type Service struct {
	mu       sync.RWMutex
	store    storage.Store
	logger   *slog.Logger
	now      func() time.Time
	observer Observer

	notes   map[string]*models.Note
	titles  map[string][]string
	inbound map[string]map[string]struct{}
	tags    map[string]map[string]struct{}
	pinned  map[string]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithObserver registers a callback for persisted mutations.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// NewService creates an empty service over store. Call Load to populate it.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

func (s *Service) reset() {
	s.notes = make(map[string]*models.Note)
	s.titles = make(map[string][]string)
	s.inbound = make(map[string]map[string]struct{})
	s.tags = make(map[string]map[string]struct{})
	s.pinned = make(map[string]struct{})
}

// Load replaces the in-memory state with the store's notes, recomputes
// backlinks, and persists any notes whose stored backlinks were stale.
func (s *Service) Load(ctx context.Context) error {
	loaded, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("noteservice: load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	for _, n := range loaded {
		normalize(n)
		s.notes[n.ID] = n
		s.index(n)
	}

	t := s.begin()
	for title := range s.titles {
		t.retarget(title)
	}
	repaired := len(t.order)
	if err := t.commit(ctx); err != nil {
		return fmt.Errorf("noteservice: persist repaired backlinks: %w", err)
	}

	s.logger.Info("notes loaded",
		slog.Int("count", len(s.notes)),
		slog.Int("repaired", repaired))
	return nil
}

func normalize(n *models.Note) {
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.LinkedNotes == nil {
		n.LinkedNotes = []string{}
	}
	if n.Backlinks == nil {
		n.Backlinks = []string{}
	}
	if n.Metadata.Type == "" {
		n.Metadata.Type = models.NoteTypeNote
	}
}

// index adds n to every secondary index.
func (s *Service) index(n *models.Note) {
	ids := s.titles[n.Title]
	pos := sort.Search(len(ids), func(i int) bool { return s.before(n, s.notes[ids[i]]) })
	s.titles[n.Title] = slices.Insert(ids, pos, n.ID)

	for _, link := range n.LinkedNotes {
		addToSet(s.inbound, link, n.ID)
	}
	for _, tag := range n.Tags {
		addToSet(s.tags, tag, n.ID)
	}
	if n.IsPinned {
		s.pinned[n.ID] = struct{}{}
	}
}

// unindex removes n from every secondary index.
func (s *Service) unindex(n *models.Note) {
	ids := slices.DeleteFunc(s.titles[n.Title], func(id string) bool { return id == n.ID })
	if len(ids) == 0 {
		delete(s.titles, n.Title)
	} else {
		s.titles[n.Title] = ids
	}
	for _, link := range n.LinkedNotes {
		removeFromSet(s.inbound, link, n.ID)
	}
	for _, tag := range n.Tags {
		removeFromSet(s.tags, tag, n.ID)
	}
	delete(s.pinned, n.ID)
}

// before orders title holders: earliest created first, ties broken by ID.
func (s *Service) before(a, b *models.Note) bool {
	if !a.Metadata.CreatedAt.Equal(b.Metadata.CreatedAt) {
		return a.Metadata.CreatedAt.Before(b.Metadata.CreatedAt)
	}
	return a.ID < b.ID
}

// resolve returns the note a wiki-link title points at, or nil.
func (s *Service) resolve(title string) *models.Note {
	ids := s.titles[title]
	if len(ids) == 0 {
		return nil
	}
	return s.notes[ids[0]]
}

func (s *Service) notify(kind string, ids ...string) {
	if s.observer == nil {
		return
	}
	for _, id := range ids {
		s.observer(kind, id)
	}
}

func addToSet(m map[string]map[string]struct{}, key, id string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[id] = struct{}{}
}

func removeFromSet(m map[string]map[string]struct{}, key, id string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
