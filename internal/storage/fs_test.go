package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/orrery/internal/models"
)

func tempVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(t.TempDir())
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	return v
}

func TestVault_CommitWritesDocument(t *testing.T) {
	v := tempVault(t)
	n := &models.Note{ID: "n1", Title: "Hello", Content: "# Hello\nWorld\n"}
	if err := v.Commit(context.Background(), Batch{Put: []*models.Note{n}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, err := v.ReadNote("n1.md")
	if err != nil {
		t.Fatalf("ReadNote: %v", err)
	}
	if got.Title != "Hello" || got.Content != n.Content {
		t.Errorf("note mismatch: %+v", got)
	}
}

func TestVault_LoadAllUsesFileNameWithoutFrontmatter(t *testing.T) {
	v := tempVault(t)
	_ = os.WriteFile(filepath.Join(v.Root(), "dropped.md"), []byte("plain #tag"), 0o644)
	_ = os.WriteFile(filepath.Join(v.Root(), "readme.txt"), []byte("not md"), 0o644)
	_ = os.MkdirAll(filepath.Join(v.Root(), ".orrery"), 0o755)
	_ = os.WriteFile(filepath.Join(v.Root(), ".orrery", "hidden.md"), []byte("skip"), 0o644)

	notes, err := v.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("len = %d, want 1", len(notes))
	}
	if notes[0].ID != "dropped" || notes[0].Content != "plain #tag" {
		t.Errorf("unexpected note: %+v", notes[0])
	}
	if len(notes[0].Tags) != 1 || notes[0].Tags[0] != "tag" {
		t.Errorf("tags = %v", notes[0].Tags)
	}
}

func TestVault_TraversalBlocked(t *testing.T) {
	v := tempVault(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow", ""} {
		if _, err := v.read(p); err == nil {
			t.Errorf("expected error reading %q", p)
		}
		if err := v.write(p, []byte("x")); err == nil {
			t.Errorf("expected error writing %q", p)
		}
	}
	bad := &models.Note{ID: "../escape", Title: "x"}
	if err := v.Commit(context.Background(), Batch{Put: []*models.Note{bad}}); err == nil {
		t.Error("expected error committing a note id that escapes the vault")
	}
}

func TestVault_AtomicWriteNoLeftovers(t *testing.T) {
	v := tempVault(t)
	_ = v.write("atomic.md", []byte("original content"))
	if err := v.write("atomic.md", []byte("updated content")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, _ := v.read("atomic.md")
	if string(got) != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(v.Root(), ".orrery-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewVault_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "orrery-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewVault(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestNoteID(t *testing.T) {
	cases := map[string]struct {
		id string
		ok bool
	}{
		"abc.md":               {"abc", true},
		"sub/abc.md":           {"abc", true},
		"abc.txt":              {"", false},
		".orrery/settings.yaml": {"", false},
		".orrery-tmp-123":      {"", false},
		".hidden.md":           {"", false},
	}
	for in, want := range cases {
		id, ok := NoteID(in)
		if id != want.id || ok != want.ok {
			t.Errorf("NoteID(%q) = %q, %v; want %q, %v", in, id, ok, want.id, want.ok)
		}
	}
}
