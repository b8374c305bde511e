// Package registry builds the in-memory Document Registry from a content
// root. A Registry is an immutable snapshot: it is constructed per scan and
// never refreshed in place.
package registry

import (
	"bytes"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/slugify"
	"github.com/starford/ansuz/internal/storage"
)

// WarningKind classifies a non-fatal scan problem.
type WarningKind string

const (
	WarnUnreadableFile    WarningKind = "unreadable_file"
	WarnMalformedMetadata WarningKind = "malformed_metadata"
)

// Warning is a per-file problem recorded while scanning. It never aborts a
// build.
type Warning struct {
	Kind WarningKind
	Path string
	Err  error
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %s: %v", w.Kind, w.Path, w.Err)
}

func (w Warning) Unwrap() error { return w.Err }

// Registry maps document paths to documents and derives the tag and
// category index entries.
type Registry struct {
	docs       map[string]models.Document
	paths      []string
	tags       []models.IndexEntry
	categories []models.IndexEntry
	warnings   []Warning
}

// Build scans every Markdown file the store lists and returns the resulting
// registry. Unreadable files, binary files, and malformed front matter are
// logged and recorded as warnings; only a failure to list the root itself
// is returned as an error.
func Build(store storage.Provider, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("registry: scan: %w", err)
	}

	r := &Registry{docs: make(map[string]models.Document, len(entries))}
	for _, e := range entries {
		if e.Err != nil {
			r.warn(logger, Warning{Kind: WarnUnreadableFile, Path: e.Path, Err: e.Err})
			continue
		}
		data, err := store.Read(e.Path)
		if err != nil {
			r.warn(logger, Warning{Kind: WarnUnreadableFile, Path: e.Path, Err: err})
			continue
		}
		if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
			r.warn(logger, Warning{Kind: WarnUnreadableFile, Path: e.Path, Err: fmt.Errorf("binary content")})
			continue
		}

		res := parser.Parse(data)
		if res.MetadataErr != nil {
			r.warn(logger, Warning{Kind: WarnMalformedMetadata, Path: e.Path, Err: res.MetadataErr})
		}
		r.add(newDocument(e.Path, data, res))
	}

	r.finish()
	logger.Debug("registry: built",
		slog.Int("documents", len(r.paths)),
		slog.Int("tags", len(r.tags)),
		slog.Int("categories", len(r.categories)),
		slog.Int("warnings", len(r.warnings)))
	return r, nil
}

// FromDocuments builds a registry from already parsed documents. Later
// duplicates of a path replace earlier ones.
func FromDocuments(docs ...models.Document) *Registry {
	r := &Registry{docs: make(map[string]models.Document, len(docs))}
	for _, d := range docs {
		r.add(d)
	}
	r.finish()
	return r
}

func newDocument(p string, data []byte, res *parser.Result) models.Document {
	title := res.Title
	if title == "" {
		title = strings.TrimSuffix(path.Base(p), ".md")
	}
	return models.Document{
		Path:        p,
		Title:       title,
		Description: res.Description,
		Author:      res.Author,
		Tags:        res.Tags,
		Categories:  res.Categories,
		Checksum:    checksum.Sum(data),
		Body:        res.Body,
	}
}

func (r *Registry) warn(logger *slog.Logger, w Warning) {
	r.warnings = append(r.warnings, w)
	logger.Warn("registry: skipped content",
		slog.String("kind", string(w.Kind)),
		slog.String("path", w.Path),
		slog.String("error", w.Err.Error()))
}

func (r *Registry) add(d models.Document) {
	r.docs[d.Path] = d
}

func (r *Registry) finish() {
	r.paths = make([]string, 0, len(r.docs))
	for p := range r.docs {
		r.paths = append(r.paths, p)
	}
	sort.Strings(r.paths)
	r.tags = r.group(func(d models.Document) []string { return d.Tags })
	r.categories = r.group(func(d models.Document) []string { return d.Categories })
}

// group builds one entry per distinct key, sorted by name, with members
// sorted by title then path.
func (r *Registry) group(keys func(models.Document) []string) []models.IndexEntry {
	members := make(map[string][]models.DocumentRef)
	for _, p := range r.paths {
		d := r.docs[p]
		for _, k := range keys(d) {
			members[k] = append(members[k], models.DocumentRef{Path: d.Path, Title: d.Title})
		}
	}

	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	slugs := slugify.Unique(names)

	out := make([]models.IndexEntry, 0, len(names))
	for _, name := range names {
		refs := members[name]
		sort.SliceStable(refs, func(i, j int) bool {
			if refs[i].Title != refs[j].Title {
				return refs[i].Title < refs[j].Title
			}
			return refs[i].Path < refs[j].Path
		})
		out = append(out, models.IndexEntry{Name: name, Slug: slugs[name], Documents: refs})
	}
	return out
}

// Len returns the number of documents.
func (r *Registry) Len() int { return len(r.paths) }

// Get returns the document stored at path.
func (r *Registry) Get(path string) (models.Document, bool) {
	d, ok := r.docs[path]
	return d, ok
}

// Documents returns every document sorted by path.
func (r *Registry) Documents() []models.Document {
	out := make([]models.Document, 0, len(r.paths))
	for _, p := range r.paths {
		out = append(out, r.docs[p])
	}
	return out
}

// Filter returns the documents carrying tag and belonging to category,
// sorted by path. Empty arguments do not filter.
func (r *Registry) Filter(tag, category string) []models.Document {
	var out []models.Document
	for _, p := range r.paths {
		d := r.docs[p]
		if tag != "" && !d.HasTag(tag) {
			continue
		}
		if category != "" && !d.InCategory(category) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Tags returns one entry per distinct tag, sorted by name.
func (r *Registry) Tags() []models.IndexEntry { return r.tags }

// Categories returns one entry per distinct category, sorted by name.
func (r *Registry) Categories() []models.IndexEntry { return r.categories }

// Tag returns the entry for a single tag.
func (r *Registry) Tag(name string) (models.IndexEntry, bool) { return find(r.tags, name) }

// Category returns the entry for a single category.
func (r *Registry) Category(name string) (models.IndexEntry, bool) { return find(r.categories, name) }

// Warnings returns the problems recorded during Build, in scan order.
func (r *Registry) Warnings() []Warning { return r.warnings }

func find(entries []models.IndexEntry, name string) (models.IndexEntry, bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Name >= name })
	if i < len(entries) && entries[i].Name == name {
		return entries[i], true
	}
	return models.IndexEntry{}, false
}
