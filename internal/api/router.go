package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/wiki/internal/pageservice"
)

// NewRouter creates a chi router with all API routes, meant to be mounted
// under /api. sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *pageservice.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	// Pages.
	r.Get("/page/{slug}", h.GetPage)
	r.Post("/page/{slug}", h.SavePage)
	r.Get("/pages/all", h.ListPages)

	// Tags. The static "all" segment takes precedence over {tag}.
	r.Get("/tags/all", h.ListTags)
	r.Get("/tags/{tag}", h.PagesWithTag)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
