// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/notebundle/internal/index"
	"github.com/starford/notebundle/internal/storage"
)

// TestDB creates a temporary SQLite index that is closed when the test ends.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "notebundle-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// Seed writes files into store, failing the test on the first error.
func Seed(t *testing.T, store storage.Provider, files map[string]string) {
	t.Helper()
	for p, c := range files {
		if err := store.Write(p, []byte(c)); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}
}
