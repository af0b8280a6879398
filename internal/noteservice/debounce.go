package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/metrics"
	"github.com/starford/orrery/internal/models"
)

// DefaultDebounce is the quiet period before a draft is persisted.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer collapses rapid content edits into one UpdateNote per quiet
// period while exposing the latest draft to readers immediately.
type Debouncer struct {
	svc     *Service
	delay   time.Duration
	logger  *slog.Logger
	onError func(id string, err error)

	// flushMu serializes writes so a timer flush and FlushNote never
	// persist the same draft twice.
	flushMu sync.Mutex

	mu     sync.Mutex
	seq    uint64
	drafts map[string]draft
	timers map[string]*time.Timer
	closed bool
}

// draft is pending content; seq tells an in-flight write whether the draft
// it persisted is still the latest one.
type draft struct {
	content string
	seq     uint64
}

// NewDebouncer returns a debouncer flushing into svc after delay.
// onError, if set, is called when a flush fails.
func NewDebouncer(svc *Service, delay time.Duration, logger *slog.Logger, onError func(id string, err error)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{
		svc:     svc,
		delay:   delay,
		logger:  logger,
		onError: onError,
		drafts:  make(map[string]draft),
		timers:  make(map[string]*time.Timer),
	}
}

// Edit records content as the pending draft for id and restarts its timer.
func (d *Debouncer) Edit(id, content string) error {
	if _, err := d.svc.Get(id); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.seq++
	d.drafts[id] = draft{content: content, seq: d.seq}
	if t, ok := d.timers[id]; ok {
		t.Stop()
	}
	d.timers[id] = time.AfterFunc(d.delay, func() { d.flushOne(context.Background(), id) })
	return nil
}

// Pending reports whether id has an unflushed draft.
func (d *Debouncer) Pending(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.drafts[id]
	return ok
}

// Note returns the stored note with any pending draft applied.
func (d *Debouncer) Note(id string) (*models.Note, error) {
	n, err := d.svc.Get(id)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	dr, ok := d.drafts[id]
	d.mu.Unlock()
	if ok {
		n.Content = dr.content
		applyDerived(n)
	}
	return n, nil
}

func (d *Debouncer) stopTimer(id string) {
	if t, found := d.timers[id]; found {
		t.Stop()
		delete(d.timers, id)
	}
}

// settle forgets the draft written by a flush unless a newer edit replaced it.
func (d *Debouncer) settle(id string, seq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.drafts[id]; ok && cur.seq == seq {
		delete(d.drafts, id)
	}
}

// flushOne writes the draft of id. The draft stays visible through Note
// until the write has finished.
func (d *Debouncer) flushOne(ctx context.Context, id string) error {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	d.mu.Lock()
	dr, ok := d.drafts[id]
	if ok {
		d.stopTimer(id)
	}
	d.mu.Unlock()
	if !ok {
		return nil
	}

	_, err := d.svc.UpdateNote(ctx, id, models.NoteUpdate{Content: &dr.content})
	d.settle(id, dr.seq)
	if errors.Is(err, apperr.ErrNotFound) {
		d.logger.Debug("draft dropped for deleted note", slog.String("note_id", id))
		return nil
	}
	if err != nil {
		metrics.DraftFlushes.WithLabelValues("failed").Inc()
		d.logger.Error("draft flush failed",
			slog.String("note_id", id),
			slog.String("error", err.Error()))
		if d.onError != nil {
			d.onError(id, err)
		}
		return err
	}
	metrics.DraftFlushes.WithLabelValues("ok").Inc()
	return nil
}

// Discard drops the pending draft of id without writing it.
func (d *Debouncer) Discard(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.drafts, id)
	d.stopTimer(id)
}

// FlushNote writes the pending draft of id, if any.
func (d *Debouncer) FlushNote(ctx context.Context, id string) error {
	return d.flushOne(ctx, id)
}

// Flush writes every pending draft now. The first error is returned after
// all drafts have been attempted.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	ids := make([]string, 0, len(d.drafts))
	for id := range d.drafts {
		ids = append(ids, id)
	}
	d.mu.Unlock()
	sort.Strings(ids)

	var first error
	for _, id := range ids {
		if err := d.flushOne(ctx, id); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close stops all timers. Pending drafts are discarded; call Flush first
// to keep them.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
	d.drafts = make(map[string]draft)
}
