// Package indexgen renders one Markdown listing page per tag and per
// category and writes them as a full replacement of the output directory.
package indexgen

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
	"github.com/starford/ansuz/internal/slugify"
	"github.com/starford/ansuz/internal/storage"
)

// Output subdirectories below the generator's directory.
const (
	TagsDir       = "tags"
	CategoriesDir = "categories"
)

type section struct {
	dir     string
	heading string
	intro   string
	lead    string // sentence before a member list, %s is the entry name
	entries []models.IndexEntry
}

// Render produces every generated page keyed by path relative to outDir.
// It is a pure function of the registry: equal registries render to
// byte-identical pages.
func Render(reg *registry.Registry, outDir string) map[string][]byte {
	depth := len(strings.Split(strings.Trim(path.Clean(outDir), "/"), "/")) + 1
	up := strings.Repeat("../", depth)

	sections := []section{
		{TagsDir, "Tags", "Browse documentation by tag:", "Documents tagged **%s**:", reg.Tags()},
		{CategoriesDir, "Categories", "Browse documentation by category:", "Documents in category **%s**:", reg.Categories()},
	}

	pages := make(map[string][]byte)
	for _, s := range sections {
		var idx bytes.Buffer
		fmt.Fprintf(&idx, "# %s\n\n", s.heading)
		if len(s.entries) == 0 {
			fmt.Fprintf(&idx, "No %s yet.\n", strings.ToLower(s.heading))
		} else {
			fmt.Fprintf(&idx, "%s\n\n", s.intro)
		}
		for _, e := range s.entries {
			fmt.Fprintf(&idx, "- [%s](%s) (%s)\n", escapeText(e.Name), linkTarget(e.Slug+".md"), countLabel(len(e.Documents)))
			pages[path.Join(s.dir, e.Slug+".md")] = renderEntry(e, s.lead, up)
		}
		pages[path.Join(s.dir, slugify.IndexSlug+".md")] = idx.Bytes()
	}
	return pages
}

func renderEntry(e models.IndexEntry, lead, up string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", e.Name)
	fmt.Fprintf(&b, lead+"\n\n", escapeText(e.Name))
	for _, d := range e.Documents {
		fmt.Fprintf(&b, "- [%s](%s)\n", escapeText(d.Title), linkTarget(up+d.Path))
	}
	return b.Bytes()
}

// PageLink returns the path of an entry's generated page relative to the
// content root, e.g. "indexes/tags/dev.md".
func PageLink(outDir, kind, slug string) string {
	return path.Join(outDir, kind, slug+".md")
}

func linkTarget(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

var textEscaper = strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func countLabel(n int) string {
	if n == 1 {
		return "1 document"
	}
	return fmt.Sprintf("%d documents", n)
}

// Generator writes rendered pages below a directory of the content root.
type Generator struct {
	store  storage.Provider
	dir    string
	logger *slog.Logger
}

// New creates a generator writing into dir (relative to the content root).
func New(store storage.Provider, dir string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: store, dir: dir, logger: logger}
}

// Dir returns the output directory relative to the content root.
func (g *Generator) Dir() string { return g.dir }

// Generate replaces the output directory with the pages rendered from reg
// and returns how many pages were written. Pages for tags or categories
// that no longer have members disappear with the old directory.
func (g *Generator) Generate(reg *registry.Registry) (int, error) {
	pages := Render(reg, g.dir)
	if err := g.store.ReplaceDir(g.dir, pages); err != nil {
		return 0, fmt.Errorf("indexgen: write pages: %w", err)
	}
	g.logger.Info("indexgen: pages generated",
		slog.String("dir", g.dir),
		slog.Int("tags", len(reg.Tags())),
		slog.Int("categories", len(reg.Categories())),
		slog.Int("pages", len(pages)))
	return len(pages), nil
}
