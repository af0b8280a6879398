package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/orrery/internal/models"
)

const settingsKey = "settings"

// Folders returns every folder ordered by parent and position.
func (db *DB) Folders(ctx context.Context) ([]models.Folder, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, parent_id, position, is_expanded, created_at
		FROM folders ORDER BY parent_id, position, id`)
	if err != nil {
		return nil, fmt.Errorf("index: folders: %w", err)
	}
	defer rows.Close()

	var out []models.Folder
	for rows.Next() {
		var (
			f       models.Folder
			created string
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.Order, &f.IsExpanded, &created); err != nil {
			return nil, fmt.Errorf("index: scan folder: %w", err)
		}
		if f.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("index: parse folder created_at: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// PutFolder inserts or replaces a folder.
func (db *DB) PutFolder(ctx context.Context, f models.Folder) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO folders (id, name, parent_id, position, is_expanded, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name        = excluded.name,
			parent_id   = excluded.parent_id,
			position    = excluded.position,
			is_expanded = excluded.is_expanded
	`, f.ID, f.Name, f.ParentID, f.Order, f.IsExpanded, f.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("index: put folder: %w", err)
	}
	return nil
}

// Settings returns the stored settings, if any.
func (db *DB) Settings(ctx context.Context) (models.Settings, bool, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingsKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, false, nil
	}
	if err != nil {
		return models.Settings{}, false, fmt.Errorf("index: settings: %w", err)
	}
	var s models.Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return models.Settings{}, false, fmt.Errorf("index: decode settings: %w", err)
	}
	return s, true, nil
}

// PutSettings replaces the stored settings.
func (db *DB) PutSettings(ctx context.Context, s models.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("index: encode settings: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, settingsKey, string(raw))
	if err != nil {
		return fmt.Errorf("index: put settings: %w", err)
	}
	return nil
}
