package api

import (
	"github.com/starford/notebundle/internal/bundle"
	"github.com/starford/notebundle/internal/exporter"
	"github.com/starford/notebundle/internal/noteservice"
)

// ExportRequest is the request body for exporting a note.
type ExportRequest struct {
	Note   string `json:"note" example:"projects/Project.md" validate:"required"`
	DryRun bool   `json:"dry_run,omitempty"`
}

// ExportResult is the response of a finished export (aliased from the domain layer).
type ExportResult = exporter.Result

// ExportSettings is the request and response body of the settings endpoints.
type ExportSettings = exporter.Settings

// PreviewResponse describes what an export would write without writing it.
type PreviewResponse struct {
	Note       string               `json:"note" example:"projects/Project.md" validate:"required"`
	Document   string               `json:"document" example:"# Project\n" validate:"required"`
	Entries    []bundle.ExportEntry `json:"entries" validate:"required"`
	Unresolved []string             `json:"unresolved" validate:"required"`
	Collisions map[string][]string  `json:"collisions,omitempty"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// FileListResponse wraps paginated file listings.
type FileListResponse struct {
	Files []noteservice.FileItem `json:"files" validate:"required"`
	Total int                    `json:"total" example:"42" validate:"required"`
}

// ResolveResponse is returned by the resolve endpoint.
type ResolveResponse struct {
	Target string `json:"target" example:"Meeting Notes" validate:"required"`
	From   string `json:"from,omitempty" example:"projects/Project.md"`
	Path   string `json:"path" example:"work/Meeting Notes.md" validate:"required"`
}

// PathsResponse wraps a list of vault paths.
type PathsResponse struct {
	Paths []string `json:"paths" validate:"required"`
}
