package api

import (
	"github.com/starford/ansuz/internal/creator"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/search"
)

// CreateDocumentRequest is the request body for POST /api/documents.
type CreateDocumentRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Author      string   `json:"author,omitempty"`
	Dir         string   `json:"dir,omitempty"`
}

func (r CreateDocumentRequest) input() creator.Input {
	return creator.Input{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Tags:        r.Tags,
		Author:      r.Author,
		Dir:         r.Dir,
	}
}

// DocumentSummary is a document without its body.
type DocumentSummary struct {
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
	Checksum    string   `json:"checksum"`
}

// DocumentDetail adds the Markdown body to a summary.
type DocumentDetail struct {
	DocumentSummary
	Content string `json:"content"`
}

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentSummary `json:"documents"`
	Total     int               `json:"total"`
}

// IndexSummary is one tag or category in a listing.
type IndexSummary struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []search.Result `json:"results"`
}

// GenerateResponse reports a page generation run.
type GenerateResponse struct {
	Dir   string `json:"dir"`
	Pages int    `json:"pages"`
}

func summaryOf(d models.Document) DocumentSummary {
	return DocumentSummary{
		Path:        d.Path,
		Title:       d.Title,
		Description: d.Description,
		Author:      d.Author,
		Tags:        nonNil(d.Tags),
		Categories:  nonNil(d.Categories),
		Checksum:    d.Checksum,
	}
}

func summariesOf(entries []models.IndexEntry) []IndexSummary {
	out := make([]IndexSummary, len(entries))
	for i, e := range entries {
		out[i] = IndexSummary{Name: e.Name, Slug: e.Slug, Count: len(e.Documents)}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
