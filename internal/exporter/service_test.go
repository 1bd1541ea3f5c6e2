package exporter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/bundle"
	"github.com/starford/notebundle/internal/index"
	"github.com/starford/notebundle/internal/storage"
	"github.com/starford/notebundle/internal/testutil"
)

const projectNote = "---\ntitle: Project\n---\n# Project\n\n" +
	"See [[Meeting Notes|Notes]] and ![[diagram.png]].\n\n" +
	"Still missing: [[Unknown Page]].\n"

func mapResolver(m map[string]string) bundle.LinkResolver {
	return bundle.ResolverFunc(func(target, _ string) (string, bool) {
		p, ok := m[target]
		return p, ok
	})
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, r bundle.LinkResolver, opts ...Option) (*Service, storage.Provider) {
	t.Helper()
	_, store := testutil.TestVault(t)
	svc, err := New(store, r, append([]Option{WithLogger(discard())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc, store
}

func TestExport_Layout(t *testing.T) {
	svc, store := newTestService(t, mapResolver(map[string]string{
		"Meeting Notes": "work/notes.md",
		"diagram.png":   "img/diagram.png",
	}))
	testutil.Seed(t, store, map[string]string{
		"projects/Project.md": projectNote,
		"work/notes.md":       "# Notes\n",
		"img/diagram.png":     "PNG",
	})

	res, err := svc.Export(context.Background(), "projects/Project.md")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.OutputDir != "markdown-export-output/Project" {
		t.Errorf("output dir = %q", res.OutputDir)
	}
	if res.Document != "markdown-export-output/Project/Project.md" {
		t.Errorf("document = %q", res.Document)
	}
	if res.HasWarnings() {
		t.Errorf("unexpected failures: %v", res.Failed)
	}
	if len(res.Copied) != 2 {
		t.Errorf("copied = %v", res.Copied)
	}
	if len(res.Unresolved) != 1 || res.Unresolved[0] != "Unknown Page" {
		t.Errorf("unresolved = %v", res.Unresolved)
	}

	data, err := store.Read(res.Document)
	if err != nil {
		t.Fatalf("read exported document: %v", err)
	}
	doc := string(data)
	for _, want := range []string{
		"---\ntitle: Project\n---\n",
		"# Project",
		"[Notes](attachments/notes.md)",
		"![attachments/diagram.png](attachments/diagram.png)",
		"[[Unknown Page]]",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("exported document missing %q:\n%s", want, doc)
		}
	}

	for p, want := range map[string]string{
		"markdown-export-output/Project/attachments/notes.md":    "# Notes\n",
		"markdown-export-output/Project/attachments/diagram.png": "PNG",
	} {
		got, err := store.Read(p)
		if err != nil || string(got) != want {
			t.Errorf("%s = %q, %v", p, got, err)
		}
	}

	src, _ := store.Read("projects/Project.md")
	if string(src) != projectNote {
		t.Error("source note was modified")
	}
}

func TestExport_Twice(t *testing.T) {
	svc, store := newTestService(t, mapResolver(map[string]string{"a.png": "a.png"}))
	testutil.Seed(t, store, map[string]string{"n.md": "![[a.png]]\n", "a.png": "A"})

	for i := 0; i < 2; i++ {
		if _, err := svc.Export(context.Background(), "n.md"); err != nil {
			t.Fatalf("export #%d: %v", i+1, err)
		}
	}
}

func TestExport_CopyFailureIsWarning(t *testing.T) {
	svc, store := newTestService(t, mapResolver(map[string]string{
		"gone.png": "gone.png",
		"here.png": "here.png",
	}))
	testutil.Seed(t, store, map[string]string{"n.md": "![[gone.png]] ![[here.png]]\n", "here.png": "H"})

	res, err := svc.Export(context.Background(), "n.md")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !res.HasWarnings() || len(res.Failed) != 1 || res.Failed[0].Entry.Path != "gone.png" {
		t.Errorf("failed = %v", res.Failed)
	}
	if len(res.Copied) != 1 || res.Copied[0].Path != "here.png" {
		t.Errorf("copied = %v", res.Copied)
	}
	if ok, _ := store.Exists("markdown-export-output/n/n.md"); !ok {
		t.Error("document not written")
	}
	if ok, _ := store.Exists("markdown-export-output/n/attachments/here.png"); !ok {
		t.Error("remaining attachment not copied")
	}
}

func TestExport_AttachmentFolderAlwaysCreated(t *testing.T) {
	svc, store := newTestService(t, mapResolver(nil))
	testutil.Seed(t, store, map[string]string{"n.md": "# Plain\n\nNo references here.\n"})

	res, err := svc.Export(context.Background(), "n.md")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(res.Copied) != 0 || res.HasWarnings() {
		t.Errorf("result = %+v", res)
	}
	if ok, _ := store.Exists("markdown-export-output/n/attachments"); !ok {
		t.Error("attachment folder not created")
	}
}

func TestExport_KeepsFootnotes(t *testing.T) {
	svc, store := newTestService(t, mapResolver(map[string]string{"Wikipedia": "refs/Wikipedia.md"}))
	testutil.Seed(t, store, map[string]string{
		"n.md":              "Claim.[^1]\n\n[^1]: Wikipedia\n",
		"refs/Wikipedia.md": "# Wikipedia\n",
	})

	res, err := svc.Export(context.Background(), "n.md")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(res.Copied) != 0 {
		t.Errorf("copied = %v", res.Copied)
	}
	data, err := store.Read(res.Document)
	if err != nil {
		t.Fatalf("read exported document: %v", err)
	}
	if string(data) != "Claim.[^1]\n\n[^1]: Wikipedia\n" {
		t.Errorf("exported document = %q", data)
	}
	if ok, _ := store.Exists("markdown-export-output/n/attachments/Wikipedia.md"); ok {
		t.Error("footnote text was copied as an attachment")
	}
}

func TestExport_MissingNote(t *testing.T) {
	svc, store := newTestService(t, mapResolver(nil))
	_, err := svc.Export(context.Background(), "nope.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if ok, _ := store.Exists(DefaultExportFolderName); ok {
		t.Error("output written for a missing note")
	}
}

func TestExport_NotANote(t *testing.T) {
	svc, store := newTestService(t, mapResolver(nil))
	testutil.Seed(t, store, map[string]string{"pic.png": "P"})
	if _, err := svc.Export(context.Background(), "pic.png"); !errors.Is(err, apperr.ErrNotANote) {
		t.Errorf("err = %v, want ErrNotANote", err)
	}
}

func TestExport_BareNoteName(t *testing.T) {
	svc, store := newTestService(t, mapResolver(map[string]string{"Project": "projects/Project.md"}))
	testutil.Seed(t, store, map[string]string{"projects/Project.md": "# Project\n"})

	res, err := svc.Export(context.Background(), "Project")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Note != "projects/Project.md" {
		t.Errorf("note = %q", res.Note)
	}
}

func TestExport_CustomFoldersAndHook(t *testing.T) {
	var got *Result
	svc, store := newTestService(t, mapResolver(map[string]string{"a.png": "a.png"}),
		WithSettings(Settings{ExportFolderName: "out/", AttachmentFolderName: "files", CopyWorkers: 1}),
		WithExportHook(func(r *Result) { got = r }),
	)
	testutil.Seed(t, store, map[string]string{"n.md": "![[a.png]]\n", "a.png": "A"})

	res, err := svc.Export(context.Background(), "n.md")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if got != res {
		t.Error("hook not called with the result")
	}
	if ok, _ := store.Exists("out/n/files/a.png"); !ok {
		t.Error("attachment not in custom folder")
	}
	data, _ := store.Read("out/n/n.md")
	if !strings.Contains(string(data), "(files/a.png)") {
		t.Errorf("document = %q", data)
	}
}

func TestExport_CancelledContext(t *testing.T) {
	svc, store := newTestService(t, mapResolver(map[string]string{"a.png": "a.png"}))
	testutil.Seed(t, store, map[string]string{"n.md": "![[a.png]]\n", "a.png": "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Export(ctx, "n.md")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(res.Failed) != 1 {
		t.Errorf("failed = %v, want the copy reported", res.Failed)
	}
}

func TestSettings_Validation(t *testing.T) {
	svc, _ := newTestService(t, mapResolver(nil))

	for _, bad := range []Settings{
		{ExportFolderName: "", AttachmentFolderName: "attachments"},
		{ExportFolderName: "out", AttachmentFolderName: ""},
		{ExportFolderName: "   ", AttachmentFolderName: "a"},
		{ExportFolderName: "../escape", AttachmentFolderName: "a"},
		{ExportFolderName: "/abs", AttachmentFolderName: "a"},
		{ExportFolderName: "out", AttachmentFolderName: "a", CopyWorkers: -1},
	} {
		if err := svc.UpdateSettings(bad); !errors.Is(err, apperr.ErrInvalidSettings) {
			t.Errorf("UpdateSettings(%+v) = %v, want ErrInvalidSettings", bad, err)
		}
	}
	if got := svc.Settings(); got != DefaultSettings() {
		t.Errorf("settings changed after rejected updates: %+v", got)
	}

	if err := svc.UpdateSettings(Settings{ExportFolderName: "exports", AttachmentFolderName: "att"}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got := svc.Settings(); got.ExportFolderName != "exports" || got.AttachmentFolderName != "att" {
		t.Errorf("settings = %+v", got)
	}
}

func TestNew_RejectsInvalidSettings(t *testing.T) {
	_, store := testutil.TestVault(t)
	_, err := New(store, mapResolver(nil), WithSettings(Settings{}))
	if !errors.Is(err, apperr.ErrInvalidSettings) {
		t.Errorf("err = %v, want ErrInvalidSettings", err)
	}
}

func TestExport_WithIndex(t *testing.T) {
	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	testutil.Seed(t, store, map[string]string{
		"daily/Today.md":           "Met with [[Ada]], see [plan](../projects/Plan.md) and ![[chart.png]].\n",
		"people/Ada Lovelace.md":   "---\naliases: [Ada]\n---\n",
		"projects/Plan.md":         "# Plan\n",
		"assets/chart.png":         "C",
		"markdown-export-output/x": "stale",
	})
	if err := index.Sync(db, store, discard(), DefaultExportFolderName); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	svc, err := New(store, index.Resolver{Index: db, Logger: discard()}, WithLogger(discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := svc.Export(context.Background(), "Today")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(res.Copied) != 3 || len(res.Unresolved) != 0 {
		t.Fatalf("copied = %v, unresolved = %v", res.Copied, res.Unresolved)
	}
	data, _ := store.Read(res.Document)
	for _, want := range []string{
		"[Ada](<attachments/Ada Lovelace.md>)",
		"[plan](attachments/Plan.md)",
		"![attachments/chart.png](attachments/chart.png)",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("document missing %q:\n%s", want, data)
		}
	}
}
