// Package internal wires configuration, storage and the content pipeline
// into the commands exposed by the ansuz binary.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/backup"
	"github.com/starford/ansuz/internal/creator"
	"github.com/starford/ansuz/internal/indexgen"
	"github.com/starford/ansuz/internal/kbservice"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/watch"
)

func setup(opts []Option) (*application, *storage.FS, error) {
	app := &application{stdout: os.Stdout, now: time.Now}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	if app.logger == nil {
		// stdout is reserved for command output and the MCP transport.
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(app.logger)

	if err := os.MkdirAll(cfg.Content.Root, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create content root: %w", err)
	}
	store, err := storage.NewFS(cfg.Content.Root,
		storage.WithExclude(cfg.Content.OutputDir),
		storage.WithIgnoreFiles(cfg.Content.IgnoreFiles...),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	app.logger.Debug("Configuration loaded",
		slog.String("content_root", store.Root()),
		slog.String("output_dir", cfg.Content.OutputDir),
		slog.String("log_level", cfg.App.LogLevel.String()))
	return app, store, nil
}

func newService(app *application, store *storage.FS, opts ...kbservice.Option) (*kbservice.Service, error) {
	c := creator.New(store, app.logger, creator.WithClock(app.now))
	opts = append([]kbservice.Option{kbservice.WithCreator(c)}, opts...)
	svc, err := kbservice.New(store, app.config.Content.OutputDir, app.logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("init service: %w", err)
	}
	return svc, nil
}

// Create writes one new document and prints its path.
func Create(ctx context.Context, in creator.Input, opts ...Option) error {
	app, store, err := setup(opts)
	if err != nil {
		return err
	}
	rel, err := creator.New(store, app.logger, creator.WithClock(app.now)).Create(ctx, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.stdout, rel)
	return err
}

// Generate scans the content tree once and rewrites the index pages.
func Generate(_ context.Context, opts ...Option) error {
	app, store, err := setup(opts)
	if err != nil {
		return err
	}
	reg, err := registry.Build(store, app.logger)
	if err != nil {
		return err
	}
	n, err := indexgen.New(store, app.config.Content.OutputDir, app.logger).Generate(reg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.stdout, "generated %d pages for %d documents in %s (%d warnings)\n",
		n, reg.Len(), app.config.Content.OutputDir, len(reg.Warnings()))
	return err
}

// List prints the documents matching tag and category, one per line:
// path, title and tags separated by tabs.
func List(_ context.Context, tag, category string, opts ...Option) error {
	app, store, err := setup(opts)
	if err != nil {
		return err
	}
	reg, err := registry.Build(store, app.logger)
	if err != nil {
		return err
	}
	for _, d := range reg.Filter(tag, category) {
		if _, err := fmt.Fprintf(app.stdout, "%s\t%s\t%s\n", d.Path, d.Title, strings.Join(d.Tags, ",")); err != nil {
			return err
		}
	}
	return nil
}

// Backup zips the content tree into dir and prints the archive path. An
// empty dir means a "backups" directory next to the content root.
func Backup(ctx context.Context, dir string, opts ...Option) error {
	app, store, err := setup(opts)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = filepath.Join(filepath.Dir(store.Root()), "backups")
	}
	path, n, err := backup.Create(ctx, store, dir, app.now(), app.logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.stdout, "backed up %d files to %s\n", n, path)
	return err
}

// Watch regenerates the index pages once, then again after every burst of
// content changes, until ctx is cancelled.
func Watch(ctx context.Context, opts ...Option) error {
	app, store, err := setup(opts)
	if err != nil {
		return err
	}
	svc, err := newService(app, store)
	if err != nil {
		return err
	}
	defer svc.Close()

	regenerate := func(ctx context.Context) error {
		n, err := svc.Generate(ctx)
		if err != nil {
			return err
		}
		app.logger.Info("Index pages regenerated", slog.Int("pages", n))
		return nil
	}
	if err := regenerate(ctx); err != nil {
		return err
	}
	return watch.New(store, app.config.Watch.Debounce, app.logger).Run(ctx, regenerate)
}

// Serve runs the HTTP preview/API server together with the watcher until
// ctx is cancelled.
func Serve(ctx context.Context, opts ...Option) error {
	app, store, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	broker := sse.NewBroker(cfg.Watch.Debounce)
	defer broker.Close()

	svc, err := newService(app, store, kbservice.WithChangeHook(broker.Notify))
	if err != nil {
		return err
	}
	defer svc.Close()

	if _, err := svc.Rebuild(ctx); err != nil {
		logger.Warn("initial scan failed", slog.String("error", err.Error()))
	}

	authEnabled := cfg.Auth.AuthEnabled()
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Snapshot(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(svc, authEnabled, cfg.Auth.Token, broker))
	r.Mount("/render", api.NewRenderRouter(svc, authEnabled, cfg.Auth.Token))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watch.New(store, cfg.Watch.Debounce, logger).Run(gCtx, func(ctx context.Context) error {
			_, err := svc.Generate(ctx)
			return err
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// MCP serves the MCP tools on stdin/stdout.
func MCP(_ context.Context, version string, opts ...Option) error {
	app, store, err := setup(opts)
	if err != nil {
		return err
	}
	svc, err := newService(app, store)
	if err != nil {
		return err
	}
	defer svc.Close()

	app.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, version).ServeStdio()
}
