// Package render turns document bodies into preview HTML through an ordered
// list of text transformers followed by goldmark.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
)

// Transformer rewrites Markdown text before it is converted to HTML.
// Init is called once per registry snapshot, before any Transform call.
type Transformer interface {
	Name() string
	Init(reg *registry.Registry) error
	Transform(doc models.Document, text string) string
}

// Pipeline applies transformers in the order they were given.
type Pipeline struct {
	transformers []Transformer
	md           goldmark.Markdown
}

// NewPipeline creates a pipeline over the given transformers.
func NewPipeline(transformers ...Transformer) *Pipeline {
	return &Pipeline{
		transformers: transformers,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
		),
	}
}

// Default returns the pipeline with the built-in tag and category link
// transformers pointing at pages generated under outDir.
func Default(outDir string) *Pipeline {
	return NewPipeline(NewTagLinks(outDir), NewCategoryLinks(outDir))
}

// Init prepares every transformer for reg.
func (p *Pipeline) Init(reg *registry.Registry) error {
	for _, t := range p.transformers {
		if err := t.Init(reg); err != nil {
			return fmt.Errorf("render: init %s: %w", t.Name(), err)
		}
	}
	return nil
}

// Apply runs every transformer over text.
func (p *Pipeline) Apply(doc models.Document, text string) string {
	for _, t := range p.transformers {
		text = t.Transform(doc, text)
	}
	return text
}

// HTML runs the transformers over the document body and converts the
// result to HTML.
func (p *Pipeline) HTML(doc models.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(p.Apply(doc, doc.Body)), &buf); err != nil {
		return nil, fmt.Errorf("render: convert %s: %w", doc.Path, err)
	}
	return buf.Bytes(), nil
}
