// Package creator scaffolds new content files with front matter, a title
// heading, and an optional category marker.
package creator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/slugify"
	"github.com/starford/ansuz/internal/storage"
)

// Input describes a document to create. Only Title is required.
type Input struct {
	Title       string
	Description string
	Category    string
	Tags        []string
	Author      string
	// Dir is a subdirectory of the content root to create the file in.
	Dir string
}

func (in *Input) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.Author = strings.TrimSpace(in.Author)
	in.Dir = strings.Trim(path.Clean(strings.ReplaceAll(strings.TrimSpace(in.Dir), `\`, "/")), "/")
	if in.Dir == "." {
		in.Dir = ""
	}
	in.Tags = parser.StringSet(in.Tags)
}

// Validate checks a normalized input.
func (in *Input) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Title, validation.Required.Error("title must not be empty"), validation.By(singleLine)),
		validation.Field(&in.Category, validation.By(markerSafe)),
		validation.Field(&in.Dir, validation.By(insideRoot)),
	)
}

func singleLine(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, "\n\r") {
		return errors.New("must not contain line breaks")
	}
	return nil
}

func markerSafe(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, "{}\n\r") {
		return errors.New("must not contain braces or line breaks")
	}
	return nil
}

func insideRoot(value any) error {
	s, _ := value.(string)
	if strings.HasPrefix(s, "/") || s == ".." || strings.HasPrefix(s, "../") {
		return errors.New("must stay inside the content root")
	}
	return nil
}

// Creator writes new documents through a storage provider.
type Creator struct {
	store  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Creator.
type Option func(*Creator)

// WithClock overrides the clock used for the created timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Creator) {
		c.now = now
	}
}

// New creates a Creator.
func New(store storage.Provider, logger *slog.Logger, opts ...Option) *Creator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Creator{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Filename derives the file name for a title: its slug plus ".md". It
// returns "" when the title has no letters or digits.
func Filename(title string) string {
	s := slugify.Make(title)
	if s == "" {
		return ""
	}
	return s + ".md"
}

// Create validates in, writes the new document, and returns its path
// relative to the content root. It fails with apperr.ErrInvalidInput for
// bad input and apperr.ErrConflict when the target file already exists;
// in both cases nothing is written.
func (c *Creator) Create(_ context.Context, in Input) (string, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	name := Filename(in.Title)
	if name == "" {
		return "", fmt.Errorf("%w: title %q has no letters or digits to build a filename from", apperr.ErrInvalidInput, in.Title)
	}
	rel := path.Join(in.Dir, name)

	content, err := Render(in, c.now())
	if err != nil {
		return "", err
	}
	if err := c.store.Create(rel, content); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: document %s already exists", apperr.ErrConflict, rel)
		}
		return "", err
	}

	c.logger.Info("creator: document created", slog.String("path", rel))
	return rel, nil
}

type frontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description,omitempty"`
	Author      string   `yaml:"author,omitempty"`
	Created     string   `yaml:"created"`
	Tags        []string `yaml:"tags,omitempty"`
}

// Render builds the file content for a normalized input.
func Render(in Input, created time.Time) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString("---\n")
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	err := enc.Encode(frontMatter{
		Title:       in.Title,
		Description: in.Description,
		Author:      in.Author,
		Created:     created.UTC().Format(time.RFC3339),
		Tags:        in.Tags,
	})
	if err == nil {
		err = enc.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("creator: encode front matter: %w", err)
	}
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", in.Title)
	if in.Category != "" {
		fmt.Fprintf(&b, "%s\n\n", parser.CategoryMarker(in.Category))
	}
	if in.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", in.Description)
	}
	b.WriteString(skeleton)
	return b.Bytes(), nil
}

const skeleton = `## Overview

[Add content here]

## Details

[Add details here]

## Related

- [Add related links here]
`
