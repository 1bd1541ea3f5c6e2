// Package exporter writes a note and everything it references into a
// self-contained bundle folder inside the vault.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/bundle"
	"github.com/starford/notebundle/internal/markdown"
	"github.com/starford/notebundle/internal/models"
	"github.com/starford/notebundle/internal/storage"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for per-export reporting.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSettings sets the initial settings.
func WithSettings(st Settings) Option {
	return func(s *Service) {
		s.settings = st
	}
}

// WithExportHook registers fn to be called after every finished export.
func WithExportHook(fn func(*Result)) Option {
	return func(s *Service) {
		s.onExport = fn
	}
}

// Service runs exports. Calls to Export may overlap; two overlapping
// exports of the same note race on the same output files.
type Service struct {
	store    storage.Provider
	resolver bundle.LinkResolver
	logger   *slog.Logger
	onExport func(*Result)

	mu       sync.RWMutex
	settings Settings
}

// New creates a Service. The initial settings must be valid.
func New(store storage.Provider, resolver bundle.LinkResolver, opts ...Option) (*Service, error) {
	s := &Service{
		store:    store,
		resolver: resolver,
		logger:   slog.Default(),
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.settings.Validate(); err != nil {
		return nil, err
	}
	s.settings = s.settings.normalized()
	return s, nil
}

// Settings returns the current settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the settings. Invalid settings are rejected and
// the previous ones stay in effect.
func (s *Service) UpdateSettings(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = next.normalized()
	s.mu.Unlock()
	s.logger.Info("exporter: settings updated",
		slog.String("export_folder", next.ExportFolderName),
		slog.String("attachment_folder", next.AttachmentFolderName))
	return nil
}

// Locate turns ref into the vault path of a note. ref may be a path or a
// bare note name, which is resolved the way a [[ref]] link would be.
func (s *Service) Locate(ref string) (string, error) {
	p := strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(ref)), "/")
	if p == "" {
		return "", fmt.Errorf("exporter: empty note reference: %w", apperr.ErrNotFound)
	}
	ok, err := s.store.Exists(p)
	if err != nil {
		return "", err
	}
	if !ok {
		resolved, found := s.resolver.ResolveLink(ref, "")
		if !found {
			return "", fmt.Errorf("exporter: note %q: %w", ref, apperr.ErrNotFound)
		}
		p = resolved
	}
	if !models.IsNotePath(p) {
		return "", fmt.Errorf("exporter: %s: %w", p, apperr.ErrNotANote)
	}
	return p, nil
}

// Prepare reads the note at notePath and builds its bundle without
// touching the file system.
func (s *Service) Prepare(notePath string) (*bundle.Bundle, error) {
	return s.prepare(notePath, s.Settings())
}

func (s *Service) prepare(notePath string, st Settings) (*bundle.Bundle, error) {
	notePath, err := s.Locate(notePath)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(notePath)
	if err != nil {
		return nil, fmt.Errorf("exporter: read note %s: %w", notePath, err)
	}
	doc := markdown.Parse(data)
	return bundle.Build(doc, notePath, s.resolver, st.AttachmentFolderName), nil
}

// Export writes the bundle for the note named by ref:
//
//	<export folder>/<note name>/<note file>
//	<export folder>/<note name>/<attachment folder>/<files...>
//
// It fails only when the note cannot be read or the document cannot be
// written. Attachments that cannot be copied are reported in
// Result.Failed and do not stop the remaining copies.
func (s *Service) Export(ctx context.Context, ref string) (*Result, error) {
	started := time.Now()
	st := s.Settings()

	b, err := s.prepare(ref, st)
	if err != nil {
		return nil, err
	}

	base := path.Base(b.Source)
	outDir := path.Join(st.ExportFolderName, strings.TrimSuffix(base, path.Ext(base)))
	res := &Result{
		ID:         uuid.NewString(),
		Note:       b.Source,
		OutputDir:  outDir,
		Document:   path.Join(outDir, base),
		Unresolved: b.Unresolved,
		Collisions: bundle.Collisions(b.Entries),
		StartedAt:  started,
	}
	log := s.logger.With(slog.String("export_id", res.ID), slog.String("note", b.Source))

	if err := s.ensureFolder(outDir); err != nil {
		return nil, fmt.Errorf("exporter: output folder: %w", err)
	}
	if err := s.store.Write(res.Document, markdown.Serialize(b.Document)); err != nil {
		return nil, fmt.Errorf("exporter: write document: %w", err)
	}

	for newPath, sources := range res.Collisions {
		log.Warn("export: attachment name collision",
			slog.String("path", newPath),
			slog.Any("sources", sources))
	}

	res.Copied, res.Failed = s.copyAll(ctx, outDir, path.Join(outDir, st.AttachmentFolderName), b.Entries, st.workers())
	for _, f := range res.Failed {
		log.Warn("export: copy failed",
			slog.String("source", f.Entry.Path),
			slog.String("dest", f.Entry.NewPath),
			slog.String("error", f.Error))
	}

	res.Duration = time.Since(started)
	log.Info("export: done",
		slog.String("output", res.OutputDir),
		slog.Int("copied", len(res.Copied)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("unresolved", len(res.Unresolved)),
		slog.Duration("duration", res.Duration))

	if s.onExport != nil {
		s.onExport(res)
	}
	return res, nil
}

// ensureFolder creates dir unless it is already present.
func (s *Service) ensureFolder(dir string) error {
	ok, err := s.store.Exists(dir)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return s.store.MkdirAll(dir)
}

// copyAll creates attachDir, even for a note with nothing to copy, then
// copies every distinct entry into outDir with at most workers copies in
// flight. Failures are collected per entry, never returned.
func (s *Service) copyAll(ctx context.Context, outDir, attachDir string, entries []bundle.ExportEntry, workers int) ([]bundle.ExportEntry, []CopyFailure) {
	folderErr := s.ensureFolder(attachDir)
	entries = distinctCopies(entries)
	if len(entries) == 0 {
		if folderErr != nil {
			s.logger.Warn("export: attachment folder", slog.String("dir", attachDir), slog.Any("error", folderErr))
		}
		return nil, nil
	}

	failures := make([]error, len(entries))
	if err := folderErr; err != nil {
		for i := range failures {
			failures[i] = fmt.Errorf("attachment folder: %w", err)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i, e := range entries {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					failures[i] = err
					return nil
				}
				failures[i] = s.store.Copy(e.Path, path.Join(outDir, e.NewPath))
				return nil
			})
		}
		_ = g.Wait()
	}

	var copied []bundle.ExportEntry
	var failed []CopyFailure
	for i, e := range entries {
		if failures[i] == nil {
			copied = append(copied, e)
			continue
		}
		msg := failures[i].Error()
		if errors.Is(failures[i], apperr.ErrNotFound) {
			msg = "source file no longer exists"
		}
		failed = append(failed, CopyFailure{Entry: e, Error: msg})
	}
	return copied, failed
}

// distinctCopies drops entries that would repeat an identical copy, as
// happens when two references resolve to the same file.
func distinctCopies(entries []bundle.ExportEntry) []bundle.ExportEntry {
	type key struct{ src, dst string }
	seen := make(map[key]struct{}, len(entries))
	out := make([]bundle.ExportEntry, 0, len(entries))
	for _, e := range entries {
		k := key{e.Path, e.NewPath}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
