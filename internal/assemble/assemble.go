// Package assemble writes a corpus as an EPUB 3 book whose table of
// contents, tag pages and prev/next chains are built from the link graph.
package assemble

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/corpus"
	"github.com/starford/ljbook/internal/linkgraph"
	"github.com/starford/ljbook/internal/models"
	"github.com/starford/ljbook/internal/storage"
)

const (
	DefaultTitle    = "LiveJournal Posts Collection"
	DefaultLanguage = "ru"

	// ScopeAll names the unscoped build in results and errors.
	ScopeAll = "all"
)

// Options sets book metadata.
type Options struct {
	Title    string
	Author   string
	Language string
	// BlogURL names the output file; the first post URL is used when empty.
	BlogURL string
	// Stylesheet replaces the built-in CSS when non-empty.
	Stylesheet []byte
}

// Result describes a written book.
type Result struct {
	Path  string
	Scope string
	Posts int
	Tags  int
	Size  int
}

// Assembler writes books into a store.
type Assembler struct {
	store  storage.Provider
	opts   Options
	logger *slog.Logger
}

// New creates an Assembler writing into store.
func New(store storage.Provider, opts Options, logger *slog.Logger) *Assembler {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if len(opts.Stylesheet) == 0 {
		opts.Stylesheet = defaultStylesheet
	}
	return &Assembler{store: store, opts: opts, logger: logger}
}

// Build writes the book for c, narrowed to year when year is non-zero. The
// link graph is rebuilt over the narrowed corpus, so no page references a
// post outside the scope. An empty scope yields *apperr.EmptyCorpusError
// and writes nothing.
func (a *Assembler) Build(c *corpus.Corpus, year int) (Result, error) {
	scope := ScopeAll
	if year != 0 {
		c = c.Year(year)
		scope = strconv.Itoa(year)
	}
	if c.Empty() {
		return Result{}, &apperr.EmptyCorpusError{Scope: scope}
	}

	g := linkgraph.Build(c)
	if err := g.Validate(); err != nil {
		return Result{}, fmt.Errorf("assemble: %w", err)
	}

	blog := a.blogName(c)
	title := a.opts.Title
	if year != 0 {
		title = fmt.Sprintf("%s (%d)", title, year)
	}
	b := planBook(g, meta{
		Title:      title,
		Author:     a.opts.Author,
		Lang:       a.opts.Language,
		Identifier: Identifier(blog, scope),
	})

	files, err := b.files(a.opts.Stylesheet)
	if err != nil {
		return Result{}, err
	}
	if err := checkLinks(files); err != nil {
		return Result{}, err
	}
	name := FileName(blog, year)
	size, err := a.store.WriteStream(name, func(w io.Writer) error {
		return pack(w, files, b.Modified)
	})
	if err != nil {
		return Result{}, fmt.Errorf("assemble: write %s: %w", name, err)
	}

	res := Result{Path: name, Scope: scope, Posts: c.Len(), Tags: len(b.Tags), Size: int(size)}
	a.logger.Info("assemble: book written",
		slog.String("path", path.Join(a.store.Root(), name)),
		slog.String("scope", scope),
		slog.Int("posts", res.Posts),
		slog.Int("tags", res.Tags),
		slog.String("size", humanize.Bytes(uint64(res.Size))))
	return res, nil
}

func (a *Assembler) blogName(c *corpus.Corpus) string {
	if name := models.BlogName(a.opts.BlogURL); name != "" {
		return name
	}
	if name := models.BlogName(c.At(0).URL); name != "" {
		return name
	}
	return models.DefaultBlogName
}

// FileName returns <blog>_posts.epub, or <blog>_posts_<year>.epub for a
// year-scoped book.
func FileName(blog string, year int) string {
	if year != 0 {
		return fmt.Sprintf("%s_posts_%d.epub", blog, year)
	}
	return blog + "_posts.epub"
}

// Identifier derives a stable urn:uuid for a blog and scope, so rebuilding
// the same book keeps its identity in readers' libraries.
func Identifier(blog, scope string) string {
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(blog+"/"+scope)).String()
}

// checkLinks verifies that every relative navigation href in the rendered
// pages names a file in the container. Links inside post bodies are the
// author's and are not checked.
func checkLinks(files []file) error {
	names := make(map[string]bool, len(files))
	for _, f := range files {
		names[f.Name] = true
	}
	for _, f := range files {
		if !strings.HasSuffix(f.Name, ".xhtml") {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(f.Data))
		if err != nil {
			return fmt.Errorf("assemble: parse %s: %w", f.Name, err)
		}
		var broken string
		doc.Find("[href]").Not(".post-content [href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			u, err := url.Parse(href)
			if err != nil {
				broken = href
				return false
			}
			if u.Scheme != "" || u.Host != "" || u.Path == "" {
				return true
			}
			if !names[path.Join(path.Dir(f.Name), u.Path)] {
				broken = href
				return false
			}
			return true
		})
		if broken != "" {
			return fmt.Errorf("assemble: %s links to missing %s", f.Name, broken)
		}
	}
	return nil
}
