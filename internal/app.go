package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/notebundle/internal/exporter"
	"github.com/starford/notebundle/internal/index"
	"github.com/starford/notebundle/internal/noteservice"
	"github.com/starford/notebundle/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger every command uses.
func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// components are the pieces shared by every command.
type components struct {
	logger *slog.Logger
	store  storage.Provider
	db     *index.DB
	notes  *noteservice.Service
	exp    *exporter.Service
}

func (c *components) Close() error {
	return c.db.Close()
}

// open wires storage, the index and the services, and brings the index up
// to date with the vault. hook, if non-nil, is called after every export.
func (a *application) open(logger *slog.Logger, hook func(*exporter.Result)) (*components, error) {
	cfg := a.config

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger, cfg.Export.ExportFolderName); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	expOpts := []exporter.Option{
		exporter.WithLogger(logger),
		exporter.WithSettings(cfg.Export),
	}
	if hook != nil {
		expOpts = append(expOpts, exporter.WithExportHook(hook))
	}
	exp, err := exporter.New(store, index.Resolver{Index: db, Logger: logger}, expOpts...)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init exporter: %w", err)
	}

	return &components{
		logger: logger,
		store:  store,
		db:     db,
		notes:  noteservice.NewService(store, db),
		exp:    exp,
	}, nil
}
