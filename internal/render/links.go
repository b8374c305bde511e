package render

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/starford/ansuz/internal/indexgen"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/registry"
)

var headingLineRe = regexp.MustCompile(`(?m)^#[ \t]+.*$`)

// relLink returns the link from the document at docPath to target, both
// relative to the content root.
func relLink(docPath, target string) string {
	depth := strings.Count(path.Clean(docPath), "/")
	return (&url.URL{Path: strings.Repeat("../", depth) + target}).EscapedPath()
}

// TagLinks inserts a line of links to tag pages after the first heading.
type TagLinks struct {
	outDir string
	slugs  map[string]string
}

// NewTagLinks creates a TagLinks transformer.
func NewTagLinks(outDir string) *TagLinks {
	return &TagLinks{outDir: outDir}
}

func (t *TagLinks) Name() string { return "tag-links" }

func (t *TagLinks) Init(reg *registry.Registry) error {
	t.slugs = slugMap(reg.Tags())
	return nil
}

func (t *TagLinks) Transform(doc models.Document, text string) string {
	if len(doc.Tags) == 0 {
		return text
	}
	links := make([]string, 0, len(doc.Tags))
	for _, tag := range doc.Tags {
		slug, ok := t.slugs[tag]
		if !ok {
			links = append(links, "`"+tag+"`")
			continue
		}
		links = append(links, "["+tag+"]("+relLink(doc.Path, indexgen.PageLink(t.outDir, indexgen.TagsDir, slug))+")")
	}
	line := "\n\n**Tags:** " + strings.Join(links, " ") + "\n"

	loc := headingLineRe.FindStringIndex(text)
	if loc == nil {
		return strings.TrimLeft(line, "\n") + "\n" + text
	}
	return text[:loc[1]] + line + text[loc[1]:]
}

// CategoryLinks replaces inline category markers with links to the
// category pages.
type CategoryLinks struct {
	outDir string
	slugs  map[string]string
}

// NewCategoryLinks creates a CategoryLinks transformer.
func NewCategoryLinks(outDir string) *CategoryLinks {
	return &CategoryLinks{outDir: outDir}
}

func (c *CategoryLinks) Name() string { return "category-links" }

func (c *CategoryLinks) Init(reg *registry.Registry) error {
	c.slugs = slugMap(reg.Categories())
	return nil
}

func (c *CategoryLinks) Transform(doc models.Document, text string) string {
	return parser.ReplaceCategories(text, func(name string) string {
		slug, ok := c.slugs[name]
		if !ok {
			return "**Category:** " + name
		}
		return "**Category:** [" + name + "](" + relLink(doc.Path, indexgen.PageLink(c.outDir, indexgen.CategoriesDir, slug)) + ")"
	})
}

func slugMap(entries []models.IndexEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Name] = e.Slug
	}
	return m
}
