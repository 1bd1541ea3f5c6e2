package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/checksum"
	"github.com/starford/notebundle/internal/models"
)

const tempPattern = ".notebundle-tmp-*"

// FS is a Provider over a folder on the local disk.
type FS struct {
	root string
}

// NewFS returns an FS rooted at an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// resolve maps a vault path onto the disk. Absolute paths and paths that
// climb out of the root are rejected.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	local := filepath.FromSlash(rel)
	if filepath.IsAbs(local) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("storage: %q: absolute path", rel)
	}
	abs := filepath.Join(f.root, local)
	inside, err := filepath.Rel(f.root, abs)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: %q: outside the vault", rel)
	}
	return abs, nil
}

// resolvePair resolves a source and destination together.
func (f *FS) resolvePair(src, dst string) (string, string, error) {
	a, err := f.resolve(src)
	if err != nil {
		return "", "", err
	}
	b, err := f.resolve(dst)
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func (f *FS) List(dir string) ([]models.FileMetadata, error) {
	start, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var out []models.FileMetadata
	walk := func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case p != start && strings.HasPrefix(d.Name(), "."):
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		case d.IsDir():
			return nil
		}
		meta, err := f.describe(p, d)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	}
	if err := filepath.WalkDir(start, walk); err != nil {
		return nil, fmt.Errorf("storage: list %q: %w", dir, err)
	}
	return out, nil
}

// describe builds the metadata for one file. Only notes are hashed.
func (f *FS) describe(abs string, d fs.DirEntry) (models.FileMetadata, error) {
	info, err := d.Info()
	if err != nil {
		return models.FileMetadata{}, err
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return models.FileMetadata{}, err
	}
	m := models.FileMetadata{Path: filepath.ToSlash(rel), Size: info.Size(), UpdatedAt: info.ModTime()}
	if m.IsNote() {
		m.Checksum, err = checksum.SumFile(abs)
	}
	return m, err
}

func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, notFound(err))
	}
	return data, nil
}

func (f *FS) Write(path string, content []byte) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	return replaceFile(abs, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
}

func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return true, nil
}

func (f *FS) MkdirAll(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir %s: %w", path, err)
	}
	return nil
}

// Copy streams src into place at dst. The destination is replaced in one
// rename, so a reader never sees a partial attachment.
func (f *FS) Copy(src, dst string) error {
	from, to, err := f.resolvePair(src, dst)
	if err != nil {
		return err
	}
	in, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("storage: copy %s: %w", src, notFound(err))
	}
	defer in.Close()

	return replaceFile(to, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

// replaceFile writes a sibling temp file through fill, syncs it and renames
// it over abs. The temp file is removed on any failure.
func replaceFile(abs string, fill func(io.Writer) error) (err error) {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.ErrNotFound
	}
	return err
}
