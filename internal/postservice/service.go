// Package postservice answers archive queries over the stored posts: the
// SQLite index for listing and search, the post files for content and the
// link graph for navigation.
package postservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/assemble"
	"github.com/starford/ljbook/internal/checksum"
	"github.com/starford/ljbook/internal/corpus"
	"github.com/starford/ljbook/internal/index"
	"github.com/starford/ljbook/internal/linkgraph"
	"github.com/starford/ljbook/internal/postfile"
	"github.com/starford/ljbook/internal/storage"
)

// PostRef points at a neighbouring post.
type PostRef struct {
	Path  string `json:"path"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// PostDetail is the full representation of a stored post.
type PostDetail struct {
	Path     string   `json:"path"`
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Tags     []string `json:"tags"`
	Body     string   `json:"body"`
	Checksum string   `json:"checksum"`
	Prev     *PostRef `json:"prev,omitempty"`
	Next     *PostRef `json:"next,omitempty"`
}

// PostListItem is a lightweight item in a list response.
type PostListItem struct {
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Tags      []string  `json:"tags"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookBuilder writes a book for a corpus, narrowed to year when non-zero.
type BookBuilder interface {
	Build(c *corpus.Corpus, year int) (assemble.Result, error)
}

// Service coordinates storage, index and book operations.
type Service struct {
	store  storage.Provider
	db     index.PostIndex
	books  BookBuilder
	logger *slog.Logger

	mu    sync.Mutex
	graph *linkgraph.Graph
}

// NewService creates a new post service. books may be nil, in which case
// BuildBook is unavailable.
func NewService(store storage.Provider, db index.PostIndex, books BookBuilder, logger *slog.Logger) *Service {
	return &Service{store: store, db: db, books: books, logger: logger}
}

// ErrBooksDisabled is returned by BuildBook when no builder is configured.
var ErrBooksDisabled = errors.New("postservice: book building is not configured")

// GetPost reads a post file and links it to its chronological neighbours.
func (s *Service) GetPost(_ context.Context, path string) (*PostDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	p, err := postfile.Decode(path, data)
	if err != nil {
		return nil, err
	}

	detail := &PostDetail{
		Path:     path,
		URL:      p.URL,
		Title:    p.Title,
		Date:     p.PublishedAt.String(),
		Tags:     nonNilSlice(p.Tags),
		Body:     p.Body,
		Checksum: checksum.Sum(data),
	}

	g, err := s.currentGraph()
	if err != nil {
		return nil, err
	}
	if n, ok := g.Neighbors(p.URL); ok {
		detail.Prev = s.ref(g, n.Prev)
		detail.Next = s.ref(g, n.Next)
	}
	return detail, nil
}

func (s *Service) ref(g *linkgraph.Graph, url string) *PostRef {
	if url == "" {
		return nil
	}
	p, ok := g.Corpus().Get(url)
	if !ok {
		return nil
	}
	ref := &PostRef{URL: p.URL, Title: p.Title, Date: p.PublishedAt.String()}
	if path, err := s.db.PathByURL(url); err == nil {
		ref.Path = path
	}
	return ref
}

// ListPosts returns a page of posts with optional tag and year filters.
func (s *Service) ListPosts(_ context.Context, q index.ListQuery) ([]PostListItem, int, error) {
	rows, total, err := s.db.ListPosts(q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PostListItem, len(rows))
	for i, r := range rows {
		items[i] = PostListItem{
			Path:      r.Path,
			URL:       r.URL,
			Title:     r.Title,
			Date:      r.Published.String(),
			Tags:      nonNilSlice(r.Tags),
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// Tags returns every tag with its post count.
func (s *Service) Tags(_ context.Context) ([]index.TagCount, error) {
	res, err := s.db.Tags()
	return nonNilSlice(res), err
}

// Years returns every year with its post count.
func (s *Service) Years(_ context.Context) ([]index.YearCount, error) {
	res, err := s.db.Years()
	return nonNilSlice(res), err
}

// BuildBook assembles the stored posts into a book, narrowed to year when
// non-zero.
func (s *Service) BuildBook(_ context.Context, year int) (assemble.Result, error) {
	if s.books == nil {
		return assemble.Result{}, ErrBooksDisabled
	}
	c, _, err := corpus.Load(s.store, "", s.logger)
	if err != nil {
		return assemble.Result{}, err
	}
	return s.books.Build(c, year)
}

// Invalidate drops the cached link graph; the next read rebuilds it from
// the post files.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.graph = nil
	s.mu.Unlock()
}

func (s *Service) currentGraph() (*linkgraph.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph != nil {
		return s.graph, nil
	}
	c, _, err := corpus.Load(s.store, "", s.logger)
	if err != nil {
		return nil, err
	}
	s.graph = linkgraph.Build(c)
	return s.graph, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
