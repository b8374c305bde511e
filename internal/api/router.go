package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/kbservice"
)

// NewRouter creates the router mounted under /api. events, if non-nil, is
// served at GET /events behind the same auth middleware.
func NewRouter(svc *kbservice.Service, authEnabled bool, token string, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/*", h.GetDocument)

	r.Get("/tags", h.ListTags)
	r.Get("/tags/{name}", h.GetTag)
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/{name}", h.GetCategory)

	r.Get("/search", h.Search)
	r.Post("/generate", h.Generate)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}
	return r
}

// NewRenderRouter creates the router mounted under /render that serves
// HTML previews of documents and generated pages.
func NewRenderRouter(svc *kbservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.Get("/*", h.Render)
	return r
}
