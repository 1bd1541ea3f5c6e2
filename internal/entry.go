// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notebundle/internal/apperr"
	"github.com/starford/notebundle/internal/exporter"
	"github.com/starford/notebundle/internal/index"
	"github.com/starford/notebundle/internal/mcpserver"
	"github.com/starford/notebundle/internal/sse"
)

const shutdownTimeout = 10 * time.Second

// Run starts the HTTP server and the vault watcher and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("export_folder", cfg.Export.ExportFolderName),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(
		sse.WithIndexThrottle(cfg.Events.IndexThrottle),
		sse.WithKeepAlive(cfg.Events.KeepAlive),
	)
	defer broker.Close()

	c, err := app.open(logger, func(res *exporter.Result) {
		broker.Publish(sse.Event{Type: sse.ExportCompleted, Data: res})
	})
	if err != nil {
		return err
	}
	defer c.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(c, broker, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, c.db, c.store, cfg.Vault.Path, logger, broker.PublishFileEvent, cfg.Export.ExportFolderName)
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		waitForShutdown(gCtx, logger)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Export syncs the index and exports the note named by ref once.
func Export(ctx context.Context, ref string, opts ...Option) (*exporter.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	c, err := app.open(app.newLogger(), nil)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	res, err := c.exp.Export(ctx, ref)
	if errors.Is(err, apperr.ErrNotFound) {
		if similar, serr := c.notes.Suggest(ctx, ref, 3); serr == nil && len(similar) > 0 {
			return nil, &MissingNoteError{Ref: ref, Suggestions: similar, Err: err}
		}
	}
	return res, err
}

// MissingNoteError is returned by Export when the note does not exist but
// similarly named vault files do.
type MissingNoteError struct {
	Ref         string
	Suggestions []string
	Err         error
}

func (e *MissingNoteError) Error() string { return e.Err.Error() }

func (e *MissingNoteError) Unwrap() error { return e.Err }

// Reindex brings the index up to date with the vault and returns the
// number of indexed files and notes.
func Reindex(_ context.Context, opts ...Option) (files, notes int, err error) {
	app, err := newApplication(opts)
	if err != nil {
		return 0, 0, err
	}
	c, err := app.open(app.newLogger(), nil)
	if err != nil {
		return 0, 0, err
	}
	defer c.Close()

	if _, files, err = c.db.ListFiles(false, 1, 0); err != nil {
		return 0, 0, err
	}
	if _, notes, err = c.db.ListFiles(true, 1, 0); err != nil {
		return 0, 0, err
	}
	return files, notes, nil
}

// ServeMCP serves the MCP tools over stdin/stdout. Logs must not go to
// stdout, so callers pass WithLogOutput(os.Stderr).
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()
	c, err := app.open(logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("vault_path", app.config.Vault.Path))
	return mcpserver.New(c.notes, c.exp, app.version).ServeStdio()
}
