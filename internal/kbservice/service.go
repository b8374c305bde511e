// Package kbservice ties the content pipeline together for long-lived
// surfaces (HTTP, MCP, watcher). It keeps the latest registry snapshot and
// a search index built from it, and rebuilds both on demand.
package kbservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/creator"
	"github.com/starford/ansuz/internal/indexgen"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/render"
	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/storage"
)

// Change kinds reported to the change hook.
const (
	ChangeCreated   = "created"
	ChangeRebuilt   = "rebuilt"
	ChangeGenerated = "generated"
)

// ChangeFunc is called after the service changed content or state.
// path is empty for whole-tree changes.
type ChangeFunc func(kind, path string)

// Snapshot is one immutable view of the content tree.
type Snapshot struct {
	Registry *registry.Registry
	BuiltAt  time.Time

	pipeline *render.Pipeline
}

// Page is a rendered preview of a Markdown file.
type Page struct {
	Path  string
	Title string
	HTML  []byte
}

// Service coordinates storage, registry, search and page generation.
type Service struct {
	store     storage.Provider
	creator   *creator.Creator
	generator *indexgen.Generator
	index     *search.Index
	logger    *slog.Logger
	onChange  ChangeFunc

	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// Option configures a Service.
type Option func(*Service)

// WithCreator replaces the default document creator.
func WithCreator(c *creator.Creator) Option {
	return func(s *Service) {
		s.creator = c
	}
}

// WithChangeHook registers fn to be called after creates, rebuilds and
// page generation.
func WithChangeHook(fn ChangeFunc) Option {
	return func(s *Service) {
		s.onChange = fn
	}
}

// New creates a service writing generated pages into outputDir. The
// search index is opened immediately; call Close to release it.
func New(store storage.Provider, outputDir string, logger *slog.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := search.Open()
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:     store,
		generator: indexgen.New(store, outputDir, logger),
		index:     idx,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.creator == nil {
		s.creator = creator.New(store, logger)
	}
	return s, nil
}

// Close releases the search index.
func (s *Service) Close() error {
	return s.index.Close()
}

// OutputDir returns the directory generated pages are written to.
func (s *Service) OutputDir() string { return s.generator.Dir() }

// Snapshot returns the latest snapshot, building the first one if needed.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return s.Rebuild(ctx)
}

// Rebuild re-scans the content tree, reloads the search index and swaps
// in a new snapshot.
func (s *Service) Rebuild(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.rebuildLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.notify(ChangeRebuilt, "")
	return snap, nil
}

func (s *Service) rebuildLocked(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reg, err := registry.Build(s.store, s.logger)
	if err != nil {
		return nil, fmt.Errorf("kbservice: build registry: %w", err)
	}
	pipeline := render.Default(s.generator.Dir())
	if err := pipeline.Init(reg); err != nil {
		return nil, err
	}
	if err := s.index.Load(reg); err != nil {
		return nil, err
	}
	snap := &Snapshot{Registry: reg, BuiltAt: time.Now().UTC(), pipeline: pipeline}
	s.current.Store(snap)
	s.logger.Debug("kbservice: snapshot rebuilt",
		slog.Int("documents", reg.Len()),
		slog.Int("warnings", len(reg.Warnings())))
	return snap, nil
}

// Create writes a new document and rebuilds the snapshot so the document
// is immediately visible. It returns the created document.
func (s *Service) Create(ctx context.Context, in creator.Input) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rel, err := s.creator.Create(ctx, in)
	if err != nil {
		return models.Document{}, err
	}
	snap, err := s.rebuildLocked(ctx)
	if err != nil {
		return models.Document{}, err
	}
	s.notify(ChangeCreated, rel)
	doc, ok := snap.Registry.Get(rel)
	if !ok {
		// Ignore rules can hide a freshly created file from the scan.
		return models.Document{Path: rel, Title: in.Title}, nil
	}
	return doc, nil
}

// Generate rebuilds the snapshot and rewrites the index pages from it.
// It returns the number of pages written.
func (s *Service) Generate(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.rebuildLocked(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.generator.Generate(snap.Registry)
	if err != nil {
		return 0, err
	}
	s.notify(ChangeGenerated, s.generator.Dir())
	return n, nil
}

// Search runs query against the current search index.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if _, err := s.Snapshot(ctx); err != nil {
		return nil, err
	}
	return s.index.Search(query, limit)
}

// Document returns a document from the current snapshot.
func (s *Service) Document(ctx context.Context, p string) (models.Document, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return models.Document{}, err
	}
	doc, ok := snap.Registry.Get(path.Clean(p))
	if !ok {
		return models.Document{}, fmt.Errorf("%w: document %s", apperr.ErrNotFound, p)
	}
	return doc, nil
}

// Render converts a registered document, or a generated index page, to
// HTML through the render pipeline.
func (s *Service) Render(ctx context.Context, p string) (*Page, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	p = path.Clean(strings.TrimPrefix(p, "/"))

	doc, ok := snap.Registry.Get(p)
	if !ok {
		doc, err = s.generatedPage(p)
		if err != nil {
			return nil, err
		}
	}
	html, err := snap.pipeline.HTML(doc)
	if err != nil {
		return nil, err
	}
	return &Page{Path: doc.Path, Title: doc.Title, HTML: html}, nil
}

func (s *Service) generatedPage(p string) (models.Document, error) {
	dir := s.generator.Dir()
	if !strings.HasSuffix(p, ".md") || !strings.HasPrefix(p, dir+"/") {
		return models.Document{}, fmt.Errorf("%w: document %s", apperr.ErrNotFound, p)
	}
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.Document{}, fmt.Errorf("%w: document %s", apperr.ErrNotFound, p)
		}
		return models.Document{}, err
	}
	res := parser.Parse(data)
	return models.Document{
		Path:     p,
		Title:    res.Title,
		Checksum: checksum.Sum(data),
		Body:     res.Body,
	}, nil
}

func (s *Service) notify(kind, p string) {
	if s.onChange != nil {
		s.onChange(kind, p)
	}
}
