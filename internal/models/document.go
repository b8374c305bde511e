// Package models defines the domain types for ansuz.
package models

// Document represents one Markdown file under the content root.
type Document struct {
	Path        string   `json:"path"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
	Checksum    string   `json:"checksum"`
	Body        string   `json:"-"`
}

// HasTag reports whether the document carries tag (case-sensitive).
func (d Document) HasTag(tag string) bool {
	return contains(d.Tags, tag)
}

// InCategory reports whether the document belongs to category (case-sensitive).
func (d Document) InCategory(category string) bool {
	return contains(d.Categories, category)
}

// DocumentRef is the lightweight form of a Document used inside index entries.
type DocumentRef struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

// IndexEntry groups every document sharing a tag or a category.
// Documents are ordered by title, ties broken by path.
type IndexEntry struct {
	Name      string        `json:"name"`
	Slug      string        `json:"slug"`
	Documents []DocumentRef `json:"documents"`
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
