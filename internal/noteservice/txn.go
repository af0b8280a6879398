package noteservice

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/starford/orrery/internal/metrics"
	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/storage"
)

// txn records the pre-mutation state of every note it touches so a failed
// commit can restore memory exactly. Callers hold s.mu for writing.
type txn struct {
	s      *Service
	before map[string]*models.Note // nil value: note did not exist
	order  []string
}

func (s *Service) begin() *txn {
	return &txn{s: s, before: make(map[string]*models.Note)}
}

// touch snapshots id once, before its first mutation in this transaction.
func (t *txn) touch(id string) {
	if _, ok := t.before[id]; ok {
		return
	}
	t.before[id] = t.s.notes[id].Clone()
	t.order = append(t.order, id)
}

func (t *txn) batch() storage.Batch {
	var b storage.Batch
	for _, id := range t.order {
		if n, ok := t.s.notes[id]; ok {
			b.Put = append(b.Put, n.Clone())
		} else if t.before[id] != nil {
			b.Delete = append(b.Delete, id)
		}
	}
	return b
}

// commit persists every touched note. On failure memory is rolled back and
// the store error returned.
func (t *txn) commit(ctx context.Context) error {
	b := t.batch()
	if b.Empty() {
		return nil
	}
	start := time.Now()
	err := t.s.store.Commit(ctx, b)
	metrics.StoreCommitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreCommits.WithLabelValues("rolled_back").Inc()
		t.s.logger.Warn("note commit failed, rolling back",
			slog.Int("notes", len(t.order)),
			slog.String("error", err.Error()))
		t.rollback()
		return err
	}
	metrics.StoreCommits.WithLabelValues("ok").Inc()
	return nil
}

func (t *txn) rollback() {
	s := t.s
	for _, id := range t.order {
		if n, ok := s.notes[id]; ok {
			s.unindex(n)
			delete(s.notes, id)
		}
	}
	for _, id := range t.order {
		if prev := t.before[id]; prev != nil {
			s.notes[id] = prev
			s.index(prev)
		}
	}
}

// addBacklink appends source to target's backlinks if missing.
func (t *txn) addBacklink(target *models.Note, source string) {
	if slices.Contains(target.Backlinks, source) {
		return
	}
	t.touch(target.ID)
	target.Backlinks = append(target.Backlinks, source)
}

// removeBacklink drops source from target's backlinks if present.
func (t *txn) removeBacklink(target *models.Note, source string) {
	if !slices.Contains(target.Backlinks, source) {
		return
	}
	t.touch(target.ID)
	target.Backlinks = slices.DeleteFunc(target.Backlinks, func(id string) bool { return id == source })
}

// retarget recomputes the backlinks of every note holding title so that only
// the resolved holder carries them. Existing order is kept and new sources
// are appended in ID order.
func (t *txn) retarget(title string) {
	s := t.s
	holders := s.titles[title]
	if len(holders) == 0 {
		return
	}
	want := s.inbound[title]
	for i, id := range holders {
		n := s.notes[id]
		if i > 0 {
			if len(n.Backlinks) > 0 {
				t.touch(id)
				n.Backlinks = []string{}
			}
			continue
		}
		next := make([]string, 0, len(want))
		for _, src := range n.Backlinks {
			if _, ok := want[src]; ok && !slices.Contains(next, src) {
				next = append(next, src)
			}
		}
		var missing []string
		for src := range want {
			if !slices.Contains(next, src) {
				missing = append(missing, src)
			}
		}
		sort.Strings(missing)
		next = append(next, missing...)
		if !slices.Equal(next, n.Backlinks) {
			t.touch(id)
			n.Backlinks = next
		}
	}
}
