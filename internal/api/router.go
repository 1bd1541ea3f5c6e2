package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notebundle/internal/exporter"
	"github.com/starford/notebundle/internal/noteservice"
	"github.com/starford/notebundle/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(notes *noteservice.Service, exp *exporter.Service, store storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(notes, exp)
	fh := NewExportFileHandler(store, exp)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Export.
	r.Post("/export", h.Export)
	r.Get("/exports/*", fh.ServeFile)
	r.Get("/settings/export", h.GetSettings)
	r.Put("/settings/export", h.UpdateSettings)

	// Vault lookups.
	r.Get("/files", h.ListFiles)
	r.Get("/notes/*", h.GetNote)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/resolve", h.Resolve)
	r.Get("/suggest", h.Suggest)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
