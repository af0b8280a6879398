// Package index provides the SQLite-backed note store with secondary
// indices by title, tag, and pinned flag.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	excerpt     TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT 'note',
	word_count  INTEGER NOT NULL DEFAULT 0,
	read_time   INTEGER NOT NULL DEFAULT 0,
	is_pinned   INTEGER NOT NULL DEFAULT 0,
	is_archived INTEGER NOT NULL DEFAULT 0,
	folder_id   TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_title  ON notes(title);
CREATE INDEX IF NOT EXISTS idx_notes_pinned ON notes(is_pinned);

CREATE TABLE IF NOT EXISTS note_tags (
	note_id  TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	tag      TEXT NOT NULL,
	PRIMARY KEY (note_id, position)
);

CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag);

CREATE TABLE IF NOT EXISTS note_links (
	note_id  TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	target   TEXT NOT NULL,
	PRIMARY KEY (note_id, position)
);

CREATE INDEX IF NOT EXISTS idx_note_links_target ON note_links(target);

CREATE TABLE IF NOT EXISTS note_backlinks (
	note_id   TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	source_id TEXT NOT NULL,
	PRIMARY KEY (note_id, position)
);

CREATE TABLE IF NOT EXISTS folders (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	parent_id   TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL DEFAULT 0,
	is_expanded INTEGER NOT NULL DEFAULT 1,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_history (
	id         TEXT PRIMARY KEY,
	note_id    TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	action     TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ai_history_note ON ai_history(note_id);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB wraps a sql.DB with note store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
