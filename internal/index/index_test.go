package index

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/models"
	"github.com/starford/notebundle/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// seed indexes the given paths. Notes get the aliases listed for them.
func seed(t *testing.T, db *DB, paths []string, aliases map[string][]string) {
	t.Helper()
	for _, p := range paths {
		var err error
		if models.IsNotePath(p) {
			err = db.UpsertNote(FileRow{Path: p, Checksum: "x"}, aliases[p], nil)
		} else {
			err = db.UpsertFile(FileRow{Path: p, Checksum: "x"})
		}
		if err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"files", "aliases", "links"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetFile(t *testing.T) {
	db := testDB(t)
	row := FileRow{Path: "hello.md", Title: "Hello World", Checksum: "abc123", Size: 12, UpdatedAt: time.Now()}
	if err := db.UpsertNote(row, []string{"Hi"}, nil); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, err := db.GetFile("hello.md")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.Title != "Hello World" || got.Checksum != "abc123" || !got.IsNote {
		t.Errorf("row = %+v", got)
	}
	if !reflect.DeepEqual(got.Aliases, []string{"Hi"}) {
		t.Errorf("aliases = %v", got.Aliases)
	}
}

func TestGetFile_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetFile("nonexistent.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListFiles(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{"b.md", "a.md", "img.png"}, nil)

	all, total, err := db.ListFiles(false, 0, 0)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if total != 3 || len(all) != 3 || all[0].Path != "a.md" {
		t.Errorf("all = %v (total %d)", all, total)
	}

	notes, total, err := db.ListFiles(true, 1, 1)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if total != 2 || len(notes) != 1 || notes[0].Path != "b.md" {
		t.Errorf("notes page = %v (total %d)", notes, total)
	}
}

func TestResolveLink(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{
		"index.md",
		"work/Meeting Notes.md",
		"work/diagram.png",
		"archive/diagram.png",
		"projects/alpha/Plan.md",
		"projects/Plan.md",
		"Café.md",
		"people/Ada Lovelace.md",
	}, map[string][]string{"people/Ada Lovelace.md": {"Ada"}})

	tests := []struct {
		target, from, want string
	}{
		{"Meeting Notes", "index.md", "work/Meeting Notes.md"},
		{"meeting notes", "index.md", "work/Meeting Notes.md"},
		{"Meeting Notes#Agenda", "index.md", "work/Meeting Notes.md"},
		{"Meeting%20Notes.md", "index.md", "work/Meeting Notes.md"},
		{"work/Meeting Notes", "index.md", "work/Meeting Notes.md"},
		// Same folder wins, then shortest path.
		{"diagram.png", "work/Meeting Notes.md", "work/diagram.png"},
		{"diagram.png", "index.md", "work/diagram.png"},
		{"Plan", "index.md", "projects/Plan.md"},
		{"Plan", "projects/alpha/x.md", "projects/alpha/Plan.md"},
		{"../Plan.md", "projects/alpha/x.md", "projects/Plan.md"},
		{"/index.md", "work/x.md", "index.md"},
		{"café", "index.md", "Café.md"},
		{"Ada", "index.md", "people/Ada Lovelace.md"},
	}
	for _, tt := range tests {
		got, err := db.ResolveLink(tt.target, tt.from)
		if err != nil {
			t.Errorf("ResolveLink(%q, %q): %v", tt.target, tt.from, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveLink(%q, %q) = %q, want %q", tt.target, tt.from, got, tt.want)
		}
	}
}

func TestResolveLink_Misses(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{"index.md", "https.md"}, nil)
	for _, target := range []string{
		"Unknown Page",
		"https://example.com",
		"mailto:me@example.com",
		"#heading-only",
		"",
		"../../outside.md",
	} {
		if got, err := db.ResolveLink(target, "index.md"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("ResolveLink(%q) = %q, %v; want ErrNotFound", target, got, err)
		}
	}
}

func TestResolveLink_Idempotent(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{"a/x.png", "b/x.png"}, nil)
	first, _ := db.ResolveLink("x.png", "n.md")
	for i := 0; i < 5; i++ {
		if got, _ := db.ResolveLink("x.png", "n.md"); got != first {
			t.Fatalf("resolution changed: %q then %q", first, got)
		}
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{"target.md", "elsewhere/target.md"}, map[string][]string{"target.md": {"Goal"}})
	_ = db.UpsertNote(FileRow{Path: "a.md"}, nil, []models.Link{{Target: "target", Type: models.LinkInline}})
	_ = db.UpsertNote(FileRow{Path: "c.md"}, nil, []models.Link{{Target: "Goal", Type: models.LinkInline}})
	_ = db.UpsertNote(FileRow{Path: "elsewhere/d.md"}, nil, []models.Link{{Target: "target", Type: models.LinkInline}})
	_ = db.UpsertNote(FileRow{Path: "e.md"}, nil, []models.Link{{Target: "https://target", Type: models.LinkInline}})

	bl, err := db.Backlinks("target.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if !reflect.DeepEqual(bl, []string{"a.md", "c.md"}) {
		t.Errorf("backlinks = %v, want [a.md c.md]", bl)
	}
}

func TestDeleteFileCascades(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{"target.md"}, nil)
	_ = db.UpsertNote(FileRow{Path: "del.md"}, []string{"Gone"}, []models.Link{{Target: "target", Type: models.LinkInline}})

	if err := db.DeleteFile("del.md"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := db.GetFile("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted file still present: %v", err)
	}
	if bl, _ := db.Backlinks("target.md"); len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %v", bl)
	}
	if _, err := db.ResolveLink("Gone", "x.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("alias survived delete: %v", err)
	}
}

func TestUpsertReplacesLinks(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{"x.md", "y.md"}, nil)
	_ = db.UpsertNote(FileRow{Path: "up.md"}, nil, []models.Link{{Target: "x", Type: models.LinkInline}})
	_ = db.UpsertNote(FileRow{Path: "up.md"}, nil, []models.Link{{Target: "y", Type: models.LinkEmbed}})

	if bl, _ := db.Backlinks("x.md"); len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	if bl, _ := db.Backlinks("y.md"); len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestSuggestPaths(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{"work/Meeting Notes.md", "misc/todo.md", "img/diagram.png"}, nil)
	got, err := db.SuggestPaths("mtgnotes", 5)
	if err != nil {
		t.Fatalf("SuggestPaths: %v", err)
	}
	if len(got) == 0 || got[0] != "work/Meeting Notes.md" {
		t.Errorf("suggestions = %v", got)
	}
}

func TestResolver_Adapter(t *testing.T) {
	db := testDB(t)
	seed(t, db, []string{"a.md"}, nil)
	r := Resolver{Index: db, Logger: quietLogger()}
	if p, ok := r.ResolveLink("a", "n.md"); !ok || p != "a.md" {
		t.Errorf("ResolveLink = %q, %v", p, ok)
	}
	if _, ok := r.ResolveLink("b", "n.md"); ok {
		t.Error("missing target resolved")
	}
}

func TestSync_IgnoresExportFolderAndHidden(t *testing.T) {
	vault := t.TempDir()
	store, err := storage.NewFS(vault)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("note.md", []byte("---\naliases: [N]\n---\n# Note\n[[pic.png]]\n"))
	_ = store.Write("pic.png", []byte("png"))
	_ = store.Write("export/note/note.md", []byte("copy"))
	_ = store.Write(".trash/old.md", []byte("old"))

	db := testDB(t)
	if err := Sync(db, store, quietLogger(), "export"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	rows, total, _ := db.ListFiles(false, 0, 0)
	if total != 2 {
		t.Fatalf("indexed = %v, want note.md and pic.png", rows)
	}
	if p, err := db.ResolveLink("N", "x.md"); err != nil || p != "note.md" {
		t.Errorf("alias lookup = %q, %v", p, err)
	}
	if bl, _ := db.Backlinks("pic.png"); !reflect.DeepEqual(bl, []string{"note.md"}) {
		t.Errorf("backlinks(pic.png) = %v", bl)
	}

	// Removing a file drops it on the next pass.
	_ = os.Remove(filepath.Join(vault, "pic.png"))
	if err := Sync(db, store, quietLogger(), "export"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := db.GetFile("pic.png"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale file kept: %v", err)
	}
}
