package api

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/exporter"
	"github.com/starford/notebundle/internal/storage"
)

// ExportFileHandler serves files from the export folder so a finished
// bundle can be downloaded.
type ExportFileHandler struct {
	store storage.Provider
	exp   *exporter.Service
}

// NewExportFileHandler creates a handler reading through store. The export
// folder is looked up on every request so settings changes apply at once.
func NewExportFileHandler(store storage.Provider, exp *exporter.Service) *ExportFileHandler {
	return &ExportFileHandler{store: store, exp: exp}
}

// safeName cleans a bundle-relative path and rejects traversal.
func safeName(name string) (string, error) {
	if name == "" {
		return "", errors.New("path is required")
	}
	cleaned := path.Clean(name)
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("invalid path: " + name)
	}
	return cleaned, nil
}

// ServeFile handles GET /api/exports/*.
func (h *ExportFileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel, err := safeName(wildcardPath(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	data, err := h.store.Read(path.Join(h.exp.Settings().ExportFolderName, rel))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeError(w, "serve export file", err)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(rel)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, path.Base(rel), time.Time{}, bytes.NewReader(data))
}
