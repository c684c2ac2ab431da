package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ljbook/internal/postservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// events, if non-nil, is told about every book built through the API.
func NewRouter(svc *postservice.Service, authEnabled bool, token string, sseHandler http.Handler, events BookEvents) chi.Router {
	h := NewHandler(svc, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/posts", h.ListPosts)
	r.Get("/posts/*", h.GetPost)

	r.Get("/tags", h.Tags)
	r.Get("/years", h.Years)
	r.Get("/search", h.Search)

	r.Post("/books", h.BuildBook)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
