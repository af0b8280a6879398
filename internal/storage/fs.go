package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/parser"
)

const (
	noteExt      = ".md"
	metaDir      = ".orrery"
	settingsFile = metaDir + "/settings.yaml"
	foldersFile  = metaDir + "/folders.yaml"
	historyDir   = metaDir + "/ai"
)

// Vault implements Store as a directory of Markdown files, one <id>.md per
// note with YAML frontmatter. Folders, settings and the per-note assistant
// history live under .orrery/.
type Vault struct {
	root string // absolute path to vault directory
	mu   sync.Mutex
}

// NewVault creates a vault rooted at the given directory, creating it if needed.
func NewVault(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &Vault{root: abs}, nil
}

// Root returns the absolute vault directory.
func (v *Vault) Root() string { return v.root }

// NotePath returns the vault-relative file name for a note ID.
func NotePath(id string) string { return id + noteExt }

// NoteID returns the note ID for a vault-relative path, or false if the
// path is not a note file.
func NoteID(rel string) (string, bool) {
	if !strings.HasSuffix(rel, noteExt) || strings.HasPrefix(rel, metaDir) {
		return "", false
	}
	base := filepath.Base(rel)
	if strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, noteExt), true
}

// safePath resolves a relative path against the vault root and rejects
// any result that escapes it.
func (v *Vault) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if rel == "" || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: invalid path: %q", rel)
	}
	abs, err := filepath.Abs(filepath.Join(v.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, v.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

// LoadAll parses every note file in the vault. A file without an id in its
// frontmatter takes the file name as id.
func (v *Vault) LoadAll(ctx context.Context) ([]*models.Note, error) {
	var out []*models.Note
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != v.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(v.root, p)
		id, ok := NoteID(rel)
		if !ok {
			return nil
		}
		n, err := v.ReadNote(rel)
		if err != nil {
			return err
		}
		if n.ID == "" {
			n.ID = id
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: load: %w", err)
	}
	return out, nil
}

// ReadNote decodes the note file at a vault-relative path.
func (v *Vault) ReadNote(rel string) (*models.Note, error) {
	data, err := v.read(rel)
	if err != nil {
		return nil, err
	}
	n, err := parser.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", rel, err)
	}
	return n, nil
}

// Commit writes every put note and removes every deleted one. Files are
// replaced atomically one by one; a failure part-way leaves earlier files written.
func (v *Vault) Commit(ctx context.Context, b Batch) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, n := range b.Put {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := parser.EncodeDocument(n)
		if err != nil {
			return err
		}
		if err := v.write(NotePath(n.ID), data); err != nil {
			return err
		}
	}
	for _, id := range b.Delete {
		if err := v.remove(NotePath(id)); err != nil {
			return err
		}
		if err := v.remove(historyPath(id)); err != nil {
			return err
		}
	}
	return nil
}

func (v *Vault) Folders(_ context.Context) ([]models.Folder, error) {
	var out []models.Folder
	if err := v.readYAML(foldersFile, &out); err != nil {
		return nil, err
	}
	sortFolders(out)
	return out, nil
}

func (v *Vault) PutFolder(ctx context.Context, f models.Folder) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	folders, err := v.Folders(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range folders {
		if folders[i].ID == f.ID {
			folders[i] = f
			replaced = true
		}
	}
	if !replaced {
		folders = append(folders, f)
	}
	return v.writeYAML(foldersFile, folders)
}

func (v *Vault) Settings(_ context.Context) (models.Settings, bool, error) {
	var s *models.Settings
	if err := v.readYAML(settingsFile, &s); err != nil {
		return models.Settings{}, false, err
	}
	if s == nil {
		return models.Settings{}, false, nil
	}
	return *s, true, nil
}

func (v *Vault) PutSettings(_ context.Context, s models.Settings) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.writeYAML(settingsFile, s)
}

func historyPath(noteID string) string { return historyDir + "/" + noteID + ".json" }

// AppendAIResponse rewrites the note's history file with r appended.
func (v *Vault) AppendAIResponse(ctx context.Context, r models.AIResponse) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	history, err := v.AIHistory(ctx, r.NoteID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(append(history, r), "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode history: %w", err)
	}
	return v.write(historyPath(r.NoteID), data)
}

func (v *Vault) AIHistory(_ context.Context, noteID string) ([]models.AIResponse, error) {
	data, err := v.read(historyPath(noteID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []models.AIResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("storage: decode history %s: %w", noteID, err)
	}
	return out, nil
}

func (v *Vault) Close() error { return nil }

func (v *Vault) readYAML(rel string, target any) error {
	data, err := v.read(rel)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("storage: decode %s: %w", rel, err)
	}
	return nil
}

func (v *Vault) writeYAML(rel string, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", rel, err)
	}
	return v.write(rel, data)
}

func (v *Vault) read(rel string) ([]byte, error) {
	abs, err := v.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// write atomically writes content: tmp file → fsync → rename.
func (v *Vault) write(rel string, content []byte) error {
	abs, err := v.safePath(rel)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".orrery-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// remove deletes a file; a file that is already gone is not an error.
func (v *Vault) remove(rel string) error {
	abs, err := v.safePath(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", rel, err)
	}
	return nil
}
