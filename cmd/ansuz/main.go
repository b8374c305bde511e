package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/creator"
	"github.com/starford/ansuz/internal/parser"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

var version = "dev"

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// The flag wins over the file.
	if root := cmd.String("root"); root != "" {
		cfg.Content.Root = root
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func runCreate(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Create(ctx, creator.Input{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Category:    cmd.String("category"),
		Tags:        parser.StringSet(cmd.String("tags")),
		Author:      cmd.String("author"),
		Dir:         cmd.String("dir"),
	}, opts...)
}

func runGenerate(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Generate(ctx, opts...)
}

func runList(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.List(ctx, cmd.String("tag"), cmd.String("category"), opts...)
}

func runBackup(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Backup(ctx, cmd.String("out"), opts...)
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, opts...)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Serve(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.MCP(ctx, version, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:    "ansuz",
		Usage:   "Content tooling for a Markdown documentation site: create documents, regenerate tag and category pages",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("ANSUZ_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Content root directory (overrides content.root)",
				Sources: cli.EnvVars("ANSUZ_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "Create a new document with front matter",
				Action: runCreate,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Document title", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "One-line description"},
					&cli.StringFlag{Name: "category", Usage: "Category written as an inline marker"},
					&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
					&cli.StringFlag{Name: "author", Usage: "Author name"},
					&cli.StringFlag{Name: "dir", Usage: "Subdirectory of the content root"},
				},
			},
			{
				Name:   "generate",
				Usage:  "Regenerate the tag and category listing pages",
				Action: runGenerate,
			},
			{
				Name:   "list",
				Usage:  "List documents, optionally filtered",
				Action: runList,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tag", Usage: "Only documents with this tag"},
					&cli.StringFlag{Name: "category", Usage: "Only documents in this category"},
				},
			},
			{
				Name:   "backup",
				Usage:  "Zip the content tree into a timestamped archive",
				Action: runBackup,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Directory for the archive (default: backups next to the content root)"},
				},
			},
			{
				Name:   "watch",
				Usage:  "Regenerate listing pages whenever content changes",
				Action: runWatch,
			},
			{
				Name:   "serve",
				Usage:  "Serve the preview site, JSON API and change events over HTTP",
				Action: runServe,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdio",
				Action: runMCP,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
