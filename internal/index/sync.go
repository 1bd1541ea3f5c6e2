package index

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/notebundle/internal/checksum"
	"github.com/starford/notebundle/internal/models"
	"github.com/starford/notebundle/internal/parser"
	"github.com/starford/notebundle/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are indexed (notes are parsed for aliases and links)
//   - files removed from disk are deleted from the index
//
// Paths under any of the ignore prefixes are treated as absent.
func Sync(db *DB, store storage.Provider, logger *slog.Logger, ignore ...string) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if ignored(m.Path, ignore) {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == fingerprint(m) {
			continue
		}
		if err := indexFile(db, store, m); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// fingerprint is the value stored in the checksum column: the content
// digest for notes, size and mtime for everything else.
func fingerprint(m models.FileMetadata) string {
	if m.IsNote() {
		return m.Checksum
	}
	return fmt.Sprintf("%d:%d", m.Size, m.UpdatedAt.UnixNano())
}

// indexFile stores m, parsing it first when it is a note.
func indexFile(db *DB, store storage.Provider, m models.FileMetadata) error {
	row := FileRow{
		Path:      m.Path,
		Size:      m.Size,
		UpdatedAt: m.UpdatedAt,
	}
	if !m.IsNote() {
		row.Checksum = fingerprint(m)
		return db.UpsertFile(row)
	}

	data, err := store.Read(m.Path)
	if err != nil {
		return err
	}
	res := parser.Parse(m.Path, data)
	row.Title = res.Title
	row.Checksum = checksum.Sum(data)
	return db.UpsertNote(row, res.Aliases, res.Links)
}

// ignored reports whether p is hidden or lies under one of the prefixes.
func ignored(p string, prefixes []string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	for _, pre := range prefixes {
		pre = strings.Trim(pre, "/")
		if pre == "" {
			continue
		}
		if p == pre || strings.HasPrefix(p, pre+"/") {
			return true
		}
	}
	return false
}
