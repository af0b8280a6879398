package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/orrery/internal/models"
	"github.com/starford/orrery/internal/storage"
)

const timeLayout = time.RFC3339Nano

// Commit applies the batch inside one transaction.
func (db *DB) Commit(ctx context.Context, b storage.Batch) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, n := range b.Put {
		if err := upsertNote(ctx, tx, n); err != nil {
			return err
		}
	}
	for _, id := range b.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
			return fmt.Errorf("index: delete note %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

func upsertNote(ctx context.Context, tx *sql.Tx, n *models.Note) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO notes (id, title, content, excerpt, type, word_count, read_time,
			is_pinned, is_archived, folder_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = excluded.title,
			content     = excluded.content,
			excerpt     = excluded.excerpt,
			type        = excluded.type,
			word_count  = excluded.word_count,
			read_time   = excluded.read_time,
			is_pinned   = excluded.is_pinned,
			is_archived = excluded.is_archived,
			folder_id   = excluded.folder_id,
			created_at  = excluded.created_at,
			updated_at  = excluded.updated_at
	`, n.ID, n.Title, n.Content, n.Excerpt, string(n.Metadata.Type), n.Metadata.WordCount, n.Metadata.ReadTime,
		n.IsPinned, n.IsArchived, n.FolderID,
		n.Metadata.CreatedAt.UTC().Format(timeLayout), n.Metadata.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("index: upsert note %s: %w", n.ID, err)
	}

	if err := replaceList(ctx, tx, "note_tags", "tag", n.ID, n.Tags); err != nil {
		return err
	}
	if err := replaceList(ctx, tx, "note_links", "target", n.ID, n.LinkedNotes); err != nil {
		return err
	}
	return replaceList(ctx, tx, "note_backlinks", "source_id", n.ID, n.Backlinks)
}

// replaceList rewrites the ordered child rows of a note in table.
func replaceList(ctx context.Context, tx *sql.Tx, table, column, noteID string, values []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("index: clear %s: %w", table, err)
	}
	if len(values) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (note_id, position, `+column+`) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare %s insert: %w", table, err)
	}
	defer stmt.Close()
	for i, v := range values {
		if _, err := stmt.ExecContext(ctx, noteID, i, v); err != nil {
			return fmt.Errorf("index: insert %s: %w", table, err)
		}
	}
	return nil
}

// LoadAll returns every stored note with its tags, links, and backlinks.
func (db *DB) LoadAll(ctx context.Context) ([]*models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, content, excerpt, type, word_count, read_time,
			is_pinned, is_archived, folder_id, created_at, updated_at
		FROM notes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("index: load notes: %w", err)
	}
	defer rows.Close()

	var out []*models.Note
	byID := make(map[string]*models.Note)
	for rows.Next() {
		var (
			n                models.Note
			noteType         string
			created, updated string
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.Excerpt, &noteType,
			&n.Metadata.WordCount, &n.Metadata.ReadTime, &n.IsPinned, &n.IsArchived, &n.FolderID,
			&created, &updated); err != nil {
			return nil, fmt.Errorf("index: scan note: %w", err)
		}
		n.Metadata.Type = models.NoteType(noteType)
		if n.Metadata.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("index: parse created_at of %s: %w", n.ID, err)
		}
		if n.Metadata.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
			return nil, fmt.Errorf("index: parse updated_at of %s: %w", n.ID, err)
		}
		n.Tags, n.LinkedNotes, n.Backlinks = []string{}, []string{}, []string{}
		out = append(out, &n)
		byID[n.ID] = &n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lists := []struct {
		table, column string
		field         func(*models.Note) *[]string
	}{
		{"note_tags", "tag", func(n *models.Note) *[]string { return &n.Tags }},
		{"note_links", "target", func(n *models.Note) *[]string { return &n.LinkedNotes }},
		{"note_backlinks", "source_id", func(n *models.Note) *[]string { return &n.Backlinks }},
	}
	for _, l := range lists {
		if err := db.loadList(ctx, l.table, l.column, byID, l.field); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (db *DB) loadList(ctx context.Context, table, column string, byID map[string]*models.Note, field func(*models.Note) *[]string) error {
	rows, err := db.conn.QueryContext(ctx, `SELECT note_id, `+column+` FROM `+table+` ORDER BY note_id, position`)
	if err != nil {
		return fmt.Errorf("index: load %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, v string
		if err := rows.Scan(&id, &v); err != nil {
			return fmt.Errorf("index: scan %s: %w", table, err)
		}
		if n, ok := byID[id]; ok {
			dst := field(n)
			*dst = append(*dst, v)
		}
	}
	return rows.Err()
}
