package api

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/kbservice"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/registry"
)

// Handler holds API route handlers.
type Handler struct {
	svc *kbservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *kbservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardPath extracts the document path from the URL. Encoded slashes
// (guide%2Fa.md) are accepted.
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func nameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// ListDocuments handles GET /api/documents?tag=&category=.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	q := r.URL.Query()
	docs := snap.Registry.Filter(q.Get("tag"), q.Get("category"))
	items := make([]DocumentSummary, len(docs))
	for i, d := range docs {
		items[i] = summaryOf(d)
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// GetDocument handles GET /api/documents/*. The checksum is sent as ETag
// and a matching If-None-Match yields 304.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.Document(r.Context(), p)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	etag := `"` + doc.Checksum + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, DocumentDetail{DocumentSummary: summaryOf(doc), Content: doc.Body})
}

// CreateDocument handles POST /api/documents.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	doc, err := h.svc.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	w.Header().Set("Location", "/api/documents/"+doc.Path)
	writeJSON(w, http.StatusCreated, DocumentDetail{DocumentSummary: summaryOf(doc), Content: doc.Body})
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	h.listEntries(w, r, "tags", (*registry.Registry).Tags)
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.listEntries(w, r, "categories", (*registry.Registry).Categories)
}

// GetTag handles GET /api/tags/{name}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	h.getEntry(w, r, "tag", (*registry.Registry).Tag)
}

// GetCategory handles GET /api/categories/{name}.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	h.getEntry(w, r, "category", (*registry.Registry).Category)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request, key string, entries func(*registry.Registry) []models.IndexEntry) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeError(w, "list "+key, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{key: summariesOf(entries(snap.Registry))})
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request, kind string, lookup func(*registry.Registry, string) (models.IndexEntry, bool)) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeError(w, "get "+kind, err)
		return
	}
	name := nameParam(r)
	entry, ok := lookup(snap.Registry, name)
	if !ok {
		writeError(w, "get "+kind, fmt.Errorf("%w: %s %q", apperr.ErrNotFound, kind, name))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Search handles GET /api/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: nonNil(results)})
}

// Generate handles POST /api/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Generate(r.Context())
	if err != nil {
		writeError(w, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Dir: h.svc.OutputDir(), Pages: n})
}

const pageTemplate = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body>
</html>
`

// Render handles GET /render/*.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	p := wildcardPath(r)
	if p == "" {
		p = h.svc.OutputDir() + "/tags/index.md"
	}
	page, err := h.svc.Render(r.Context(), p)
	if err != nil {
		writeError(w, "render", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, pageTemplate, html.EscapeString(page.Title), page.HTML)
}
