// Package parser extracts front matter, category markers, and titles from
// Markdown content. Nothing in this package returns a parse error: malformed
// input degrades to "no metadata".
package parser

import "strings"

// Result holds the output of parsing a Markdown file.
type Result struct {
	// Metadata is the decoded front-matter block, never nil.
	Metadata map[string]any
	// MetadataErr is the decode error swallowed while reading a malformed
	// front-matter block. Metadata is empty whenever it is set.
	MetadataErr error

	Body        string
	Title       string
	Description string
	Author      string
	Tags        []string
	Categories  []string
}

// Parse splits data into front matter and body and resolves tags,
// categories, and title. Title is empty when neither the front matter nor
// the body provides one.
func Parse(data []byte) *Result {
	meta, body, err := ParseFrontmatter(data)

	categories := append(ResolveCategories(body), categoryValues(meta["category"])...)
	categories = append(categories, categoryValues(meta["categories"])...)

	title := stringValue(meta, "title")
	if title == "" {
		title = FirstHeading([]byte(body))
	}

	return &Result{
		Metadata:    meta,
		MetadataErr: err,
		Body:        body,
		Title:       title,
		Description: stringValue(meta, "description"),
		Author:      stringValue(meta, "author"),
		Tags:        StringSet(meta["tags"]),
		Categories:  normalizeSet(categories),
	}
}

// categoryValues reads a front-matter category field. Unlike tags, a plain
// string is one category name even when it contains commas.
func categoryValues(v any) []string {
	if s, ok := v.(string); ok {
		return normalizeSet([]string{s})
	}
	return StringSet(v)
}

func stringValue(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return strings.TrimSpace(s)
}
