package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ljbook/internal/index"
	"github.com/starford/ljbook/internal/postservice"
)

// BookEvents is notified after a book has been written.
type BookEvents interface {
	PublishBookEvent(path, scope string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *postservice.Service
	events BookEvents
}

// NewHandler creates a new Handler.
func NewHandler(svc *postservice.Service, events BookEvents) *Handler {
	return &Handler{svc: svc, events: events}
}

// postPath extracts the post file path from the URL (everything after
// /api/posts/). Encoded slashes are accepted.
func postPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List stored posts
//	@Tags			posts
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			year	query		int		false	"Filter by year"
//	@Param			order	query		string	false	"Sort order"	Enums(oldest, newest)
//	@Success		200		{object}	PostListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	year, err := yearParam(q.Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be a four-digit year")
		return
	}

	items, total, err := h.svc.ListPosts(r.Context(), index.ListQuery{
		Limit:  limit,
		Offset: offset,
		Tag:    q.Get("tag"),
		Year:   year,
		Newest: q.Get("order") == "newest",
	})
	if err != nil {
		writeFailure(w, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: items, Total: total})
}

// GetPost handles GET /api/posts/*.
//
//	@Summary		Get a single post with its neighbours
//	@Tags			posts
//	@Produce		json
//	@Param			path	path		string	true	"Post file path"
//	@Success		200		{object}	PostDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/posts/{path} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	path := postPath(r)
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	post, err := h.svc.GetPost(r.Context(), path)
	if err != nil {
		writeFailure(w, "get post", err, slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Tags handles GET /api/tags.
//
//	@Summary		List tags with post counts
//	@Tags			posts
//	@Produce		json
//	@Success		200	{object}	TagsResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeFailure(w, "tags", err)
		return
	}
	out := make([]TagCount, len(tags))
	for i, t := range tags {
		out[i] = TagCount{Tag: t.Tag, Count: t.Count}
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: out})
}

// Years handles GET /api/years.
//
//	@Summary		List years with post counts
//	@Tags			posts
//	@Produce		json
//	@Success		200	{object}	YearsResponse
//	@Security		BearerAuth
//	@Router			/years [get]
func (h *Handler) Years(w http.ResponseWriter, r *http.Request) {
	years, err := h.svc.Years(r.Context())
	if err != nil {
		writeFailure(w, "years", err)
		return
	}
	out := make([]YearCount, len(years))
	for i, y := range years {
		out[i] = YearCount{Year: y.Year, Count: y.Count}
	}
	writeJSON(w, http.StatusOK, YearsResponse{Years: out})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeFailure(w, "search", err, slog.String("query", q))
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Path: res.Path, URL: res.URL, Title: res.Title, Date: res.Published, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// BuildBook handles POST /api/books.
//
//	@Summary		Build an EPUB from the stored posts
//	@Tags			books
//	@Produce		json
//	@Param			year	query		int	false	"Restrict the book to one year"
//	@Success		201		{object}	BookResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books [post]
func (h *Handler) BuildBook(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be a four-digit year")
		return
	}
	res, err := h.svc.BuildBook(r.Context(), year)
	if err != nil {
		writeFailure(w, "build book", err, slog.Int("year", year))
		return
	}
	if h.events != nil {
		h.events.PublishBookEvent(res.Path, res.Scope)
	}
	writeJSON(w, http.StatusCreated, BookResponse{
		Path:  res.Path,
		Scope: res.Scope,
		Posts: res.Posts,
		Tags:  res.Tags,
		Size:  res.Size,
	})
}

// yearParam parses an optional year query value; empty means no year.
func yearParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1000 || y > 9999 {
		return 0, errors.New("invalid year")
	}
	return y, nil
}
