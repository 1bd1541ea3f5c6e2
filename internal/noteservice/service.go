// Package noteservice answers read-only questions about the vault for the
// HTTP and MCP transports: what a note references, what references it, and
// where a reference leads.
package noteservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/checksum"
	"github.com/starford/notebundle/internal/index"
	"github.com/starford/notebundle/internal/models"
	"github.com/starford/notebundle/internal/parser"
	"github.com/starford/notebundle/internal/storage"
)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Checksum    string         `json:"checksum"`
	Aliases     []string       `json:"aliases"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	References  []Reference    `json:"references"`
	Backlinks   []string       `json:"backlinks"`
}

// Reference is one outgoing reference of a note and where it leads.
// Resolved is empty when the target is not in the vault.
type Reference struct {
	Target   string `json:"target"`
	Type     string `json:"type"`
	Resolved string `json:"resolved,omitempty"`
}

// FileItem is a lightweight item in a list response.
type FileItem = index.FileRow

// Service coordinates storage and index lookups.
type Service struct {
	store storage.Provider
	db    index.FileIndex
}

// NewService creates a new note service.
func NewService(store storage.Provider, db index.FileIndex) *Service {
	return &Service{store: store, db: db}
}

// GetNote reads a note, parses it and enriches it with resolved references
// and backlinks.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	if !models.IsNotePath(path) {
		return nil, fmt.Errorf("noteservice: %s: %w", path, apperr.ErrNotANote)
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	res := parser.Parse(path, data)

	refs := make([]Reference, 0, len(res.Links))
	for _, l := range res.Links {
		ref := Reference{Target: l.Target, Type: l.Type}
		resolved, err := s.db.ResolveLink(l.Target, path)
		switch {
		case err == nil:
			ref.Resolved = resolved
		case !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
		refs = append(refs, ref)
	}

	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		Path:        path,
		Title:       res.Title,
		Checksum:    checksum.Sum(data),
		Aliases:     nonNilSlice(res.Aliases),
		Frontmatter: res.Frontmatter,
		References:  refs,
		Backlinks:   nonNilSlice(bl),
	}, nil
}

// ListFiles returns indexed files in path order with the total count.
func (s *Service) ListFiles(_ context.Context, notesOnly bool, limit, offset int) ([]FileItem, int, error) {
	rows, total, err := s.db.ListFiles(notesOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(rows), total, nil
}

// Resolve returns the vault path target leads to when written in from.
func (s *Service) Resolve(_ context.Context, target, from string) (string, error) {
	return s.db.ResolveLink(target, from)
}

// Backlinks returns all note paths that reference path.
func (s *Service) Backlinks(_ context.Context, path string) ([]string, error) {
	bl, err := s.db.Backlinks(path)
	return nonNilSlice(bl), err
}

// Suggest ranks indexed paths against a fuzzy query.
func (s *Service) Suggest(_ context.Context, query string, limit int) ([]string, error) {
	out, err := s.db.SuggestPaths(query, limit)
	return nonNilSlice(out), err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
