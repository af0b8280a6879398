package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/models"
)

// NoteSink receives notes changed outside the process.
type NoteSink interface {
	Get(id string) (*models.Note, error)
	ImportNote(ctx context.Context, n *models.Note) (*models.Note, error)
	UpdateNote(ctx context.Context, id string, upd models.NoteUpdate) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

// EventCallback is called after a watcher-driven change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, id string)

const reconcileDelay = 200 * time.Millisecond

// Watch observes the vault with fsnotify until ctx is cancelled and feeds
// external edits into sink. Writes made through the sink itself produce
// files identical to the sink's state and are skipped.
//
// Removals and renames are reconciled after a short delay so that editors
// which replace files by rename do not cause a delete followed by a re-import.
func (v *Vault) Watch(ctx context.Context, sink NoteSink, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, v.root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", v.root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	gone := make(map[string]struct{})

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			for id := range gone {
				v.reconcileRemoved(ctx, sink, id, logger, cb)
			}
			clear(gone)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if !strings.HasPrefix(filepath.Base(ev.Name), ".") {
						if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
							logger.Warn("watcher: add new dir failed",
								slog.String("path", ev.Name),
								slog.String("error", addErr.Error()))
						}
					}
					continue
				}
			}

			rel, relErr := filepath.Rel(v.root, ev.Name)
			if relErr != nil {
				continue
			}
			id, isNote := NoteID(rel)
			if !isNote {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				delete(gone, id)
				v.applyExternal(ctx, sink, rel, id, logger, cb)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				gone[id] = struct{}{}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// applyExternal imports a new file or pushes changed fields of a known one.
func (v *Vault) applyExternal(ctx context.Context, sink NoteSink, rel, id string, logger *slog.Logger, cb EventCallback) {
	disk, err := v.ReadNote(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if disk.ID == "" {
		disk.ID = id
	}

	current, err := sink.Get(disk.ID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if _, err := sink.ImportNote(ctx, disk); err != nil {
			logger.Warn("watcher: import failed", slog.String("id", disk.ID), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: imported", slog.String("id", disk.ID))
		if cb != nil {
			cb("created", disk.ID)
		}
		return
	case err != nil:
		logger.Warn("watcher: lookup failed", slog.String("id", disk.ID), slog.String("error", err.Error()))
		return
	}

	upd, changed := diffNote(current, disk)
	if !changed {
		return
	}
	if _, err := sink.UpdateNote(ctx, disk.ID, upd); err != nil {
		logger.Warn("watcher: update failed", slog.String("id", disk.ID), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: updated", slog.String("id", disk.ID))
	if cb != nil {
		cb("updated", disk.ID)
	}
}

func (v *Vault) reconcileRemoved(ctx context.Context, sink NoteSink, id string, logger *slog.Logger, cb EventCallback) {
	abs, err := v.safePath(NotePath(id))
	if err != nil {
		return
	}
	if _, statErr := os.Stat(abs); statErr == nil {
		return
	}
	if _, err := sink.Get(id); err != nil {
		return
	}
	if err := sink.DeleteNote(ctx, id); err != nil {
		logger.Warn("watcher: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: deleted", slog.String("id", id))
	if cb != nil {
		cb("deleted", id)
	}
}

// diffNote returns the user-editable fields of disk that differ from current.
func diffNote(current, disk *models.Note) (models.NoteUpdate, bool) {
	var upd models.NoteUpdate
	changed := false
	if current.Title != disk.Title {
		upd.Title = &disk.Title
		changed = true
	}
	if current.Content != disk.Content {
		upd.Content = &disk.Content
		changed = true
	}
	if current.IsPinned != disk.IsPinned {
		upd.IsPinned = &disk.IsPinned
		changed = true
	}
	if current.IsArchived != disk.IsArchived {
		upd.IsArchived = &disk.IsArchived
		changed = true
	}
	if current.FolderID != disk.FolderID {
		upd.FolderID = &disk.FolderID
		changed = true
	}
	return upd, changed
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
