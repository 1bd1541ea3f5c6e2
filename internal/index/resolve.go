package index

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/models"
)

// ResolveLink finds the file a reference written in fromPath points to.
// Lookup order:
//  1. the path as written, relative to the folder of fromPath
//  2. the path as written, from the vault root
//  3. any file whose path ends with the target, compared case-insensitively
//  4. a note declaring the target as an alias
//
// Each step tries the target with ".md" appended as well. When several
// files match in steps 3 and 4, a file in the same folder as fromPath
// wins, then the shortest path, then the lexically smallest.
// External URLs never resolve. A miss returns apperr.ErrNotFound.
func (db *DB) ResolveLink(target, fromPath string) (string, error) {
	t := normalizeTarget(target)
	if t == "" || isExternal(t) {
		return "", fmt.Errorf("index: resolve %q: %w", target, apperr.ErrNotFound)
	}
	variants := withNoteExt(t)

	for _, c := range explicitCandidates(variants, fromPath) {
		ok, err := db.hasFile(c)
		if err != nil {
			return "", err
		}
		if ok {
			return c, nil
		}
	}

	for _, v := range variants {
		v = strings.TrimPrefix(path.Clean("/"+v), "/")
		if v == "" {
			continue
		}
		matches, err := db.suffixMatches(foldKey(v))
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			return pickBest(matches, fromPath), nil
		}
	}

	matches, err := db.aliasMatches(foldKey(t))
	if err != nil {
		return "", err
	}
	if len(matches) > 0 {
		return pickBest(matches, fromPath), nil
	}
	return "", fmt.Errorf("index: resolve %q: %w", target, apperr.ErrNotFound)
}

// withNoteExt lists the spellings of t to look up. Extensionless targets
// prefer the note.
func withNoteExt(t string) []string {
	if models.IsNotePath(t) {
		return []string{t}
	}
	if path.Ext(t) == "" {
		return []string{t + models.NoteExt, t}
	}
	return []string{t, t + models.NoteExt}
}

func explicitCandidates(variants []string, fromPath string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		p = path.Clean(p)
		if p == "." || p == ".." || strings.HasPrefix(p, "../") {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, v := range variants {
		if strings.HasPrefix(v, "/") {
			add(strings.TrimPrefix(v, "/"))
			continue
		}
		add(path.Join(path.Dir(fromPath), v))
	}
	for _, v := range variants {
		if !strings.HasPrefix(v, "/") {
			add(v)
		}
	}
	return out
}

func (db *DB) hasFile(p string) (bool, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM files WHERE path = ?`, p).Scan(&n); err != nil {
		return false, fmt.Errorf("index: lookup %s: %w", p, err)
	}
	return n > 0, nil
}

// suffixMatches returns files whose folded path equals key or ends with
// "/" + key.
func (db *DB) suffixMatches(key string) ([]string, error) {
	return db.queryPaths(`
		SELECT path FROM files
		WHERE path_key = ?1
		   OR (length(path_key) > length(?1)
		       AND substr(path_key, length(path_key) - length(?1)) = '/' || ?1)
	`, key)
}

func (db *DB) aliasMatches(key string) ([]string, error) {
	return db.queryPaths(`SELECT DISTINCT path FROM aliases WHERE alias_key = ?`, key)
}

func (db *DB) queryPaths(query string, args ...any) ([]string, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query paths: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// pickBest orders candidates deterministically and returns the first.
func pickBest(candidates []string, fromPath string) string {
	dir := path.Dir(fromPath)
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if sa, sb := path.Dir(a) == dir, path.Dir(b) == dir; sa != sb {
			return sa
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return candidates[0]
}

// Backlinks returns the notes whose references resolve to path, sorted.
func (db *DB) Backlinks(p string) ([]string, error) {
	keys := []any{nameKey(p)}
	aliases, err := db.queryPaths(`SELECT alias_key FROM aliases WHERE path = ?`, p)
	if err != nil {
		return nil, err
	}
	for _, a := range aliases {
		keys = append(keys, a)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	rows, err := db.conn.Query(`SELECT DISTINCT source, target FROM links WHERE target_key IN (`+placeholders+`)`, keys...)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	type ref struct{ source, target string }
	var refs []ref
	for rows.Next() {
		var r ref
		if err := rows.Scan(&r.source, &r.target); err != nil {
			rows.Close()
			return nil, err
		}
		refs = append(refs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, r := range refs {
		if _, dup := seen[r.source]; dup {
			continue
		}
		resolved, err := db.ResolveLink(r.target, r.source)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if resolved == p {
			seen[r.source] = struct{}{}
			out = append(out, r.source)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SuggestPaths ranks indexed paths by fuzzy match against query.
func (db *DB) SuggestPaths(query string, limit int) ([]string, error) {
	paths, err := db.queryPaths(`SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	matches := fuzzy.Find(query, paths)
	out := make([]string, 0, min(len(matches), max(limit, 0)))
	for _, m := range matches {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, m.Str)
	}
	return out, nil
}

// Resolver adapts the index to the exporter's resolver interface. Lookup
// failures other than a miss are logged and treated as unresolved.
type Resolver struct {
	Index  FileIndex
	Logger *slog.Logger
}

func (r Resolver) ResolveLink(target, fromPath string) (string, bool) {
	p, err := r.Index.ResolveLink(target, fromPath)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) && r.Logger != nil {
			r.Logger.Warn("resolve: lookup failed",
				slog.String("target", target),
				slog.String("from", fromPath),
				slog.String("error", err.Error()))
		}
		return "", false
	}
	return p, true
}
