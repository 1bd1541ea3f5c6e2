package index

import "github.com/starford/notebundle/internal/models"

// FileIndex defines the interface for vault indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type FileIndex interface {
	UpsertNote(n FileRow, aliases []string, links []models.Link) error
	UpsertFile(f FileRow) error
	DeleteFile(path string) error
	GetFile(path string) (*FileRow, error)
	ListFiles(notesOnly bool, limit, offset int) ([]FileRow, int, error)
	AllChecksums() (map[string]string, error)
	ResolveLink(target, fromPath string) (string, error)
	Backlinks(path string) ([]string, error)
	SuggestPaths(query string, limit int) ([]string, error)
	Close() error
}

// Verify *DB satisfies FileIndex at compile time.
var _ FileIndex = (*DB)(nil)
