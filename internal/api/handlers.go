package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/bundle"
	"github.com/starford/notebundle/internal/exporter"
	"github.com/starford/notebundle/internal/markdown"
	"github.com/starford/notebundle/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	notes *noteservice.Service
	exp   *exporter.Service
}

// NewHandler creates a new Handler.
func NewHandler(notes *noteservice.Service, exp *exporter.Service) *Handler {
	return &Handler{notes: notes, exp: exp}
}

// wildcardPath extracts the vault path matched by a trailing "*" route.
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps domain errors to status codes. Anything unexpected is
// logged and reported as a 500.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrNotANote):
		writeJSON(w, http.StatusBadRequest, errorBody("not a markdown note"))
	case errors.Is(err, apperr.ErrInvalidSettings):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Export handles POST /api/export.
//
//	@Summary		Export a note and the files it references into a bundle folder
//	@Tags			export
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ExportRequest	true	"Note to export"
//	@Success		200		{object}	ExportResult
//	@Success		200		{object}	PreviewResponse	"when dry_run is set"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/export [post]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := decodeJSON(w, r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if strings.TrimSpace(req.Note) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("note is required"))
		return
	}

	if req.DryRun {
		b, err := h.exp.Prepare(req.Note)
		if err != nil {
			writeError(w, "preview export", err)
			return
		}
		writeJSON(w, http.StatusOK, previewOf(b))
		return
	}

	res, err := h.exp.Export(r.Context(), req.Note)
	if err != nil {
		writeError(w, "export", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func previewOf(b *bundle.Bundle) PreviewResponse {
	entries := b.Entries
	if entries == nil {
		entries = []bundle.ExportEntry{}
	}
	unresolved := b.Unresolved
	if unresolved == nil {
		unresolved = []string{}
	}
	return PreviewResponse{
		Note:       b.Source,
		Document:   string(markdown.Serialize(b.Document)),
		Entries:    entries,
		Unresolved: unresolved,
		Collisions: bundle.Collisions(b.Entries),
	}
}

// GetSettings handles GET /api/settings/export.
//
//	@Summary		Get the export settings
//	@Tags			export
//	@Produce		json
//	@Success		200	{object}	ExportSettings
//	@Security		BearerAuth
//	@Router			/settings/export [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.exp.Settings())
}

// UpdateSettings handles PUT /api/settings/export.
//
//	@Summary		Replace the export settings
//	@Tags			export
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ExportSettings	true	"New settings"
//	@Success		200		{object}	ExportSettings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/export [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	next := h.exp.Settings()
	if err := decodeJSON(w, r, 64<<10, &next); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.exp.UpdateSettings(next); err != nil {
		writeError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, h.exp.Settings())
}

// ListFiles handles GET /api/files.
//
//	@Summary		List indexed vault files
//	@Tags			vault
//	@Produce		json
//	@Param			notes	query		bool	false	"Only markdown notes"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	notesOnly, _ := strconv.ParseBool(q.Get("notes"))

	items, total, err := h.notes.ListFiles(r.Context(), notesOnly, limit, max(offset, 0))
	if err != nil {
		writeError(w, "list files", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a note with its resolved references and backlinks
//	@Tags			vault
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.notes.GetNote(r.Context(), p)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List notes that reference a file
//	@Tags			vault
//	@Produce		json
//	@Param			path	path		string	true	"File path"
//	@Success		200		{object}	PathsResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	paths, err := h.notes.Backlinks(r.Context(), p)
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, PathsResponse{Paths: paths})
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a reference the way an export would
//	@Tags			vault
//	@Produce		json
//	@Param			target	query		string	true	"Reference target"
//	@Param			from	query		string	false	"Path of the referencing note"
//	@Success		200		{object}	ResolveResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	from := r.URL.Query().Get("from")
	if strings.TrimSpace(target) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'target' is required"))
		return
	}
	p, err := h.notes.Resolve(r.Context(), target, from)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Target: target, From: from, Path: p})
}

// Suggest handles GET /api/suggest.
//
//	@Summary		Fuzzy-match vault paths
//	@Tags			vault
//	@Produce		json
//	@Param			q		query		string	true	"Query"
//	@Param			limit	query		int		false	"Max results"	default(20)
//	@Success		200		{object}	PathsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/suggest [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	paths, err := h.notes.Suggest(r.Context(), q, limit)
	if err != nil {
		writeError(w, "suggest", err)
		return
	}
	writeJSON(w, http.StatusOK, PathsResponse{Paths: paths})
}
