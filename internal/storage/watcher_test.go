package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
)

type fakeSink struct {
	mu    sync.Mutex
	notes map[string]*models.Note
	ops   []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{notes: make(map[string]*models.Note)}
}

func (f *fakeSink) Get(id string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return n.Clone(), nil
}

func (f *fakeSink) ImportNote(_ context.Context, n *models.Note) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes[n.ID] = n.Clone()
	f.ops = append(f.ops, "import:"+n.ID)
	return n, nil
}

func (f *fakeSink) UpdateNote(_ context.Context, id string, upd models.NoteUpdate) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.notes[id]
	if upd.Content != nil {
		n.Content = *upd.Content
	}
	if upd.Title != nil {
		n.Title = *upd.Title
	}
	f.ops = append(f.ops, "update:"+id)
	return n.Clone(), nil
}

func (f *fakeSink) DeleteNote(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notes, id)
	f.ops = append(f.ops, "delete:"+id)
	return nil
}

func (f *fakeSink) has(op string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.ops {
		if o == op {
			return true
		}
	}
	return false
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
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

func startWatch(t *testing.T, v *Vault, sink NoteSink) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = v.Watch(ctx, sink, logger, nil)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_ImportsNewFile(t *testing.T) {
	v := tempVault(t)
	sink := newFakeSink()
	startWatch(t, v, sink)

	_ = os.WriteFile(filepath.Join(v.Root(), "fresh.md"), []byte("hello [[World]]"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return sink.has("import:fresh")
	}, "new file not imported")
}

func TestWatch_ExternalEditUpdates(t *testing.T) {
	v := tempVault(t)
	sink := newFakeSink()
	n := &models.Note{ID: "n1", Title: "One", Content: "v1"}
	sink.notes["n1"] = n.Clone()
	if err := v.Commit(context.Background(), Batch{Put: []*models.Note{n}}); err != nil {
		t.Fatal(err)
	}
	startWatch(t, v, sink)

	edited := n.Clone()
	edited.Content = "v2"
	if err := v.Commit(context.Background(), Batch{Put: []*models.Note{edited}}); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		got, _ := sink.Get("n1")
		return got != nil && got.Content == "v2"
	}, "external edit not applied")
}

func TestWatch_OwnWriteSkipped(t *testing.T) {
	v := tempVault(t)
	sink := newFakeSink()
	startWatch(t, v, sink)

	n := &models.Note{ID: "same", Title: "Same", Content: "body"}
	sink.notes["same"] = n.Clone()
	if err := v.Commit(context.Background(), Batch{Put: []*models.Note{n}}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)
	if c := sink.count(); c != 0 {
		t.Errorf("expected no sink calls for identical file, got %d", c)
	}
}

func TestWatch_RemovedFileDeletes(t *testing.T) {
	v := tempVault(t)
	sink := newFakeSink()
	n := &models.Note{ID: "gone", Title: "Gone", Content: "bye"}
	sink.notes["gone"] = n.Clone()
	_ = v.Commit(context.Background(), Batch{Put: []*models.Note{n}})
	startWatch(t, v, sink)

	_ = os.Remove(filepath.Join(v.Root(), "gone.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return sink.has("delete:gone")
	}, "removed file not deleted from sink")
}
