package noteservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/index"
	"github.com/starford/notebundle/internal/testutil"
)

func testService(t *testing.T, files map[string]string) *Service {
	t.Helper()
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	testutil.Seed(t, store, files)
	if err := index.Sync(db, store, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return NewService(store, db)
}

func TestGetNote(t *testing.T) {
	svc := testService(t, map[string]string{
		"a.md":      "---\naliases: [Alpha]\n---\n# A\n\nSee [[b]] and [[missing]] and ![[pic.png]].\n",
		"b.md":      "Back to [[Alpha]].\n",
		"pic.png":   "P",
		"other.txt": "x",
	})

	got, err := svc.GetNote(context.Background(), "a.md")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "A" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Aliases) != 1 || got.Aliases[0] != "Alpha" {
		t.Errorf("aliases = %v", got.Aliases)
	}
	want := map[string]string{"b": "b.md", "missing": "", "pic.png": "pic.png"}
	if len(got.References) != len(want) {
		t.Fatalf("references = %+v", got.References)
	}
	for _, r := range got.References {
		if r.Resolved != want[r.Target] {
			t.Errorf("%s resolved to %q, want %q", r.Target, r.Resolved, want[r.Target])
		}
	}
	if len(got.Backlinks) != 1 || got.Backlinks[0] != "b.md" {
		t.Errorf("backlinks = %v", got.Backlinks)
	}
}

func TestGetNote_Errors(t *testing.T) {
	svc := testService(t, map[string]string{"pic.png": "P"})

	if _, err := svc.GetNote(context.Background(), "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := svc.GetNote(context.Background(), "pic.png"); !errors.Is(err, apperr.ErrNotANote) {
		t.Errorf("non-note: err = %v", err)
	}
}

func TestListAndSuggest(t *testing.T) {
	svc := testService(t, map[string]string{
		"notes/Meeting Notes.md": "",
		"notes/Other.md":         "",
		"img/a.png":              "A",
	})

	items, total, err := svc.ListFiles(context.Background(), true, 0, 0)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("notes = %v (total %d)", items, total)
	}

	got, err := svc.Suggest(context.Background(), "mtgnotes", 5)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) == 0 || got[0] != "notes/Meeting Notes.md" {
		t.Errorf("suggest = %v", got)
	}

	empty, err := svc.Backlinks(context.Background(), "notes/Other.md")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("backlinks = %v, %v", empty, err)
	}
}
