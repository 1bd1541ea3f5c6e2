package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/models"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	IsNote    bool      `json:"is_note"`
	Checksum  string    `json:"checksum,omitempty"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
	Aliases   []string  `json:"aliases,omitempty"`
}

const upsertFileSQL = `
	INSERT INTO files (path, path_key, name_key, is_note, title, checksum, size, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		path_key   = excluded.path_key,
		name_key   = excluded.name_key,
		is_note    = excluded.is_note,
		title      = excluded.title,
		checksum   = excluded.checksum,
		size       = excluded.size,
		updated_at = excluded.updated_at
`

// UpsertNote inserts or replaces a note, its aliases and its outgoing links
// within a transaction.
func (db *DB) UpsertNote(n FileRow, aliases []string, links []models.Link) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	n.IsNote = true
	if err := upsertFile(tx, n); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM aliases WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear aliases: %w", err)
	}
	for _, a := range aliases {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO aliases (path, alias, alias_key) VALUES (?, ?, ?)`,
			n.Path, a, foldKey(a)); err != nil {
			return fmt.Errorf("index: insert alias: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, target_key, type) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			key := targetKey(l.Target)
			if key == "" {
				continue
			}
			if _, err := stmt.Exec(n.Path, l.Target, key, l.Type); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// UpsertFile records a non-note file. Any aliases or links stored for the
// path are dropped.
func (db *DB) UpsertFile(f FileRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	f.IsNote = false
	if err := upsertFile(tx, f); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM aliases WHERE path = ?`, f.Path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, f.Path)
	return tx.Commit()
}

func upsertFile(tx *sql.Tx, f FileRow) error {
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now()
	}
	_, err := tx.Exec(upsertFileSQL,
		f.Path, foldKey(f.Path), nameKey(f.Path), f.IsNote, f.Title, f.Checksum, f.Size, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}
	return nil
}

// DeleteFile removes a file; its aliases and outgoing links go with it.
func (db *DB) DeleteFile(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete file: %w", err)
	}
	return nil
}

// GetFile returns a single indexed file with its aliases.
func (db *DB) GetFile(path string) (*FileRow, error) {
	var f FileRow
	err := db.conn.QueryRow(`SELECT path, title, is_note, checksum, size, updated_at FROM files WHERE path = ?`, path).
		Scan(&f.Path, &f.Title, &f.IsNote, &f.Checksum, &f.Size, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: file %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get file: %w", err)
	}

	rows, err := db.conn.Query(`SELECT alias FROM aliases WHERE path = ? ORDER BY alias`, path)
	if err != nil {
		return nil, fmt.Errorf("index: get aliases: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		f.Aliases = append(f.Aliases, a)
	}
	return &f, rows.Err()
}

// ListFiles returns a page of indexed files ordered by path, plus the
// total count. A limit of zero or less returns everything.
func (db *DB) ListFiles(notesOnly bool, limit, offset int) ([]FileRow, int, error) {
	where := ""
	if notesOnly {
		where = " WHERE is_note = 1"
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files` + where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count files: %w", err)
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`SELECT path, title, is_note, checksum, size, updated_at FROM files`+where+
		` ORDER BY path LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list files: %w", err)
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		var f FileRow
		if err := rows.Scan(&f.Path, &f.Title, &f.IsNote, &f.Checksum, &f.Size, &f.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the stored change fingerprint of every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
