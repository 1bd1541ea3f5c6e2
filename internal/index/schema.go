// Package index keeps a SQLite catalogue of the vault: every file, the
// aliases notes declare and the references they make. It answers the
// link-resolution and backlink queries the exporter depends on.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path       TEXT PRIMARY KEY,
	path_key   TEXT NOT NULL,
	name_key   TEXT NOT NULL,
	is_note    INTEGER NOT NULL DEFAULT 0,
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	size       INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_files_path_key ON files(path_key);
CREATE INDEX IF NOT EXISTS idx_files_name_key ON files(name_key);

CREATE TABLE IF NOT EXISTS aliases (
	path      TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	alias     TEXT NOT NULL,
	alias_key TEXT NOT NULL,
	UNIQUE(path, alias)
);

CREATE INDEX IF NOT EXISTS idx_aliases_key ON aliases(alias_key);

CREATE TABLE IF NOT EXISTS links (
	source     TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	target     TEXT NOT NULL,
	target_key TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'inline',
	UNIQUE(source, target, type)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source);
CREATE INDEX IF NOT EXISTS idx_links_target_key ON links(target_key);
`

// DB wraps a sql.DB with index-specific operations.
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
