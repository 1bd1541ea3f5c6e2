package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notebundle/internal"
	"github.com/starford/notebundle/internal/apperr"
	pkgconfig "github.com/starford/notebundle/pkg/config"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0-dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return cli.Exit("usage: notebundle export <note>", 2)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v := cmd.String("export-folder"); v != "" {
		cfg.Export.ExportFolderName = v
	}
	if v := cmd.String("attachment-folder"); v != "" {
		cfg.Export.AttachmentFolderName = v
	}

	res, err := internal.Export(ctx, ref,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	)
	if err != nil {
		printFailure(os.Stdout, ref, err)
		var missing *internal.MissingNoteError
		if errors.As(err, &missing) {
			printSuggestions(os.Stdout, missing.Suggestions)
		}
		switch {
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrNotANote), errors.Is(err, apperr.ErrInvalidSettings):
			return cli.Exit("", 2)
		}
		return cli.Exit("", 1)
	}
	printSummary(os.Stdout, res)
	return nil
}

func reindex(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	files, notes, err := internal.Reindex(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	printIndexed(os.Stdout, files, notes)
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithVersion(version),
	)
}

func main() {
	cmd := &cli.Command{
		Name:    "notebundle",
		Usage:   "Export Markdown notes with everything they reference into self-contained folders",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "vault",
				Usage:   "Vault directory (overrides vault.path)",
				Sources: cli.EnvVars("NOTEBUNDLE_VAULT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "Export one note into <export folder>/<note name>",
				ArgsUsage: "<note path or name>",
				Action:    export,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "export-folder", Usage: "Override export.export_folder_name"},
					&cli.StringFlag{Name: "attachment-folder", Usage: "Override export.attachment_folder_name"},
				},
			},
			{
				Name:   "index",
				Usage:  "Bring the link index up to date with the vault",
				Action: reindex,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and keep the index fresh",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
