// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/notebundle/internal/models"

// Provider is the interface for vault file operations. All paths are
// slash-separated and relative to the vault root.
type Provider interface {
	// List returns metadata for every non-hidden file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path. A missing file yields
	// an error wrapping apperr.ErrNotFound.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent folders.
	Write(path string, content []byte) error
	// Exists reports whether anything (file or folder) is present at path.
	Exists(path string) (bool, error)
	// MkdirAll creates the folder at path. It is a no-op if it already exists.
	MkdirAll(path string) error
	// Copy atomically copies src to dst. A missing src yields an error
	// wrapping apperr.ErrNotFound.
	Copy(src, dst string) error
}
