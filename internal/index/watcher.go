package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notebundle/internal/models"
	"github.com/starford/notebundle/internal/storage"
)

// Kinds reported to an EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

type watcher struct {
	fsw    *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
	ignore []string
}

// Watch keeps the index in step with the vault until ctx is cancelled.
// Hidden paths and paths under the ignore prefixes are skipped. Folders
// created while running are watched too. A rename only reports the old
// path, so it is followed by a debounced full reconcile that picks up the
// new one.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback, ignore ...string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{fsw: fsw, db: db, store: store, root: vaultRoot, logger: logger, cb: cb, ignore: ignore}
	if err := w.addTree(vaultRoot); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	reconcileTimer := time.NewTimer(reconcileDelay)
	reconcileTimer.Stop()
	defer reconcileTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil
		case <-reconcileTimer.C:
			w.reconcile()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(ev) {
				reconcileTimer.Reset(reconcileDelay)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *watcher) notify(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// rel maps an absolute event path into the vault. ok is false for paths
// outside the root or skipped by the ignore rules.
func (w *watcher) rel(abs string) (string, bool) {
	r, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	r = filepath.ToSlash(r)
	return r, !ignored(r, w.ignore)
}

// handle applies one event to the index and reports whether a reconcile
// should be scheduled.
func (w *watcher) handle(ev fsnotify.Event) bool {
	rel, ok := w.rel(ev.Name)
	if !ok {
		return false
	}

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			w.logger.Warn("watcher: stat failed", slog.String("path", rel), slog.String("error", err.Error()))
			return false
		}
		if info.IsDir() {
			w.enterDir(ev.Name)
			return false
		}
		kind := KindUpdated
		if ev.Has(fsnotify.Create) {
			kind = KindCreated
		}
		w.index(rel, info, kind)
	case ev.Has(fsnotify.Remove):
		w.drop(rel)
	case ev.Has(fsnotify.Rename):
		w.drop(rel)
		return true
	}
	return false
}

func (w *watcher) index(rel string, info os.FileInfo, kind string) {
	meta := models.FileMetadata{Path: rel, Size: info.Size(), UpdatedAt: info.ModTime()}
	if err := indexFile(w.db, w.store, meta); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.notify(kind, rel)
}

func (w *watcher) drop(rel string) {
	if err := w.db.DeleteFile(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.notify(KindDeleted, rel)
}

// enterDir starts watching a folder created at runtime and indexes the
// files already inside it.
func (w *watcher) enterDir(abs string) {
	if err := w.addTree(abs); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", abs), slog.String("error", err.Error()))
	}
	_ = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, ok := w.rel(p)
		if !ok {
			return nil
		}
		if info, err := d.Info(); err == nil {
			w.index(rel, info, KindCreated)
		}
		return nil
	})
}

// addTree watches root and every folder below it that is not skipped.
func (w *watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			if _, ok := w.rel(p); !ok {
				return filepath.SkipDir
			}
		}
		return w.fsw.Add(p)
	})
}

// reconcile drops index rows without a file on disk and indexes files
// that are missing or changed.
func (w *watcher) reconcile() {
	known, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: read index failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	onDisk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if ignored(m.Path, w.ignore) {
			continue
		}
		onDisk[m.Path] = struct{}{}
		if known[m.Path] == fingerprint(m) {
			continue
		}
		if err := indexFile(w.db, w.store, m); err == nil {
			w.notify(KindCreated, m.Path)
		}
	}
	for p := range known {
		if _, ok := onDisk[p]; ok {
			continue
		}
		if err := w.db.DeleteFile(p); err == nil {
			w.notify(KindDeleted, p)
		}
	}
}
