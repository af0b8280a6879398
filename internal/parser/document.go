package parser

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/orrery/internal/models"
)

const delim = "---"

// frontmatter is the YAML header of a vault document.
type frontmatter struct {
	ID        string          `yaml:"id"`
	Title     string          `yaml:"title"`
	Type      models.NoteType `yaml:"type,omitempty"`
	Pinned    bool            `yaml:"pinned,omitempty"`
	Archived  bool            `yaml:"archived,omitempty"`
	Folder    string          `yaml:"folder,omitempty"`
	Backlinks []string        `yaml:"backlinks,omitempty"`
	CreatedAt time.Time       `yaml:"created_at"`
	UpdatedAt time.Time       `yaml:"updated_at"`
}

// EncodeDocument renders n as YAML frontmatter followed by its Markdown body.
func EncodeDocument(n *models.Note) ([]byte, error) {
	fm := frontmatter{
		ID:        n.ID,
		Title:     n.Title,
		Type:      n.Metadata.Type,
		Pinned:    n.IsPinned,
		Archived:  n.IsArchived,
		Folder:    n.FolderID,
		Backlinks: n.Backlinks,
		CreatedAt: n.Metadata.CreatedAt.UTC(),
		UpdatedAt: n.Metadata.UpdatedAt.UTC(),
	}
	head, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.Grow(len(head) + len(n.Content) + 8)
	buf.WriteString(delim + "\n")
	buf.Write(head)
	buf.WriteString(delim + "\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// DecodeDocument parses a vault document back into a note. Derived fields
// are recomputed from the body. A document without frontmatter yields a
// note with an empty ID and the whole input as content.
func DecodeDocument(data []byte) (*models.Note, error) {
	var fm frontmatter
	body := string(data)

	if bytes.HasPrefix(data, []byte(delim+"\n")) {
		rest := data[len(delim)+1:]
		end := bytes.Index(rest, []byte("\n"+delim))
		if end >= 0 {
			after := rest[end+1+len(delim):]
			if len(after) == 0 || after[0] == '\n' {
				if err := yaml.Unmarshal(rest[:end+1], &fm); err != nil {
					return nil, fmt.Errorf("parser: decode frontmatter: %w", err)
				}
				body = string(bytes.TrimPrefix(after, []byte("\n")))
			}
		}
	}

	d := Derive(body)
	if fm.Type == "" {
		fm.Type = models.NoteTypeNote
	}
	return &models.Note{
		ID:          fm.ID,
		Title:       fm.Title,
		Content:     body,
		Excerpt:     d.Excerpt,
		Tags:        d.Tags,
		LinkedNotes: d.Links,
		Backlinks:   nonNil(fm.Backlinks),
		Metadata: models.NoteMetadata{
			WordCount: d.WordCount,
			ReadTime:  d.ReadTime,
			Type:      fm.Type,
			CreatedAt: fm.CreatedAt,
			UpdatedAt: fm.UpdatedAt,
		},
		IsPinned:   fm.Pinned,
		IsArchived: fm.Archived,
		FolderID:   fm.Folder,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
