// Package models defines the domain types for Orrery.
package models

import (
	"slices"
	"time"
)

// NoteType is the user-facing kind of a note.
type NoteType string

const (
	NoteTypeNote     NoteType = "note"
	NoteTypeStory    NoteType = "story"
	NoteTypeResearch NoteType = "research"
	NoteTypeCanvas   NoteType = "canvas"
)

// Valid reports whether t is a known note type.
func (t NoteType) Valid() bool {
	switch t {
	case NoteTypeNote, NoteTypeStory, NoteTypeResearch, NoteTypeCanvas:
		return true
	}
	return false
}

// NoteMetadata holds fields derived from content plus timestamps.
type NoteMetadata struct {
	WordCount int       `json:"wordCount" yaml:"-"`
	ReadTime  int       `json:"readTime" yaml:"-"`
	Type      NoteType  `json:"type" yaml:"type"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// Note is a Markdown note with its derived link state.
//
// Tags, LinkedNotes, Excerpt and the metadata counters are always derived
// from Content. Backlinks is maintained by the notes engine.
type Note struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	Excerpt     string       `json:"excerpt"`
	Tags        []string     `json:"tags"`
	LinkedNotes []string     `json:"linkedNotes"`
	Backlinks   []string     `json:"backlinks"`
	Metadata    NoteMetadata `json:"metadata"`
	IsPinned    bool         `json:"isPinned"`
	IsArchived  bool         `json:"isArchived"`
	FolderID    string       `json:"folderId,omitempty"`
}

// Clone returns a deep copy of n.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	c.Tags = slices.Clone(n.Tags)
	c.LinkedNotes = slices.Clone(n.LinkedNotes)
	c.Backlinks = slices.Clone(n.Backlinks)
	return &c
}

// NoteUpdate is a partial update. Nil fields are left untouched.
type NoteUpdate struct {
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"`
	IsPinned   *bool   `json:"isPinned,omitempty"`
	IsArchived *bool   `json:"isArchived,omitempty"`
	FolderID   *string `json:"folderId,omitempty"`
}

// NoteLink is a resolved wiki-link edge between two notes.
type NoteLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Folder groups notes in the sidebar tree.
type Folder struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ParentID   string    `json:"parentId,omitempty"`
	Order      int       `json:"order"`
	IsExpanded bool      `json:"isExpanded"`
	CreatedAt  time.Time `json:"createdAt"`
}
