// Package listing walks a blog's paginated listing or its monthly archive
// and yields candidate post links lazily.
package listing

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/starford/ljbook/internal/fetch"
	"github.com/starford/ljbook/internal/filter"
)

// DefaultPageSize is the number of posts LiveJournal shows per listing page.
const DefaultPageSize = 20

// Walker is a single-use source of candidates.
type Walker interface {
	// Walk yields candidates in page order. A fatal page failure is
	// yielded as the final error.
	Walk(ctx context.Context) iter.Seq2[Candidate, error]
	// Pages reports how many pages have been fetched so far.
	Pages() int
}

// Options configures a ListingWalker.
type Options struct {
	BlogURL  string
	PageSize int
	// MaxPages caps the number of listing pages; zero means unbounded.
	MaxPages int
	// Filter pre-filters candidates by listing date and tags. Nil disables
	// pre-filtering and early stop.
	Filter *filter.Filter
}

// ListingWalker pages through <blog>/?skip=N.
type ListingWalker struct {
	fetcher fetch.Fetcher
	opts    Options
	logger  *slog.Logger
	pages   int
}

// NewListingWalker creates a ListingWalker.
func NewListingWalker(f fetch.Fetcher, opts Options, logger *slog.Logger) *ListingWalker {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	opts.BlogURL = strings.TrimRight(opts.BlogURL, "/")
	return &ListingWalker{fetcher: f, opts: opts, logger: logger}
}

// PageURL returns the listing page that starts skip posts in.
func PageURL(blogURL string, skip int) string {
	return fmt.Sprintf("%s/?skip=%d", strings.TrimRight(blogURL, "/"), skip)
}

// Pages implements Walker.
func (w *ListingWalker) Pages() int { return w.pages }

// Walk implements Walker. It stops after a page without candidates, after
// MaxPages pages, or after the page on which a post older than the range
// start appeared; the rest of that page is still yielded.
func (w *ListingWalker) Walk(ctx context.Context) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		seen := make(map[string]bool)
		for n := 0; w.opts.MaxPages <= 0 || n < w.opts.MaxPages; n++ {
			if err := ctx.Err(); err != nil {
				yield(Candidate{}, err)
				return
			}
			url := PageURL(w.opts.BlogURL, n*w.opts.PageSize)
			candidates, err := w.fetchPage(ctx, url)
			if err != nil {
				yield(Candidate{}, err)
				return
			}
			if len(candidates) == 0 {
				w.logger.Info("listing: no more posts", slog.String("url", url))
				return
			}

			stop := false
			for _, c := range candidates {
				if w.opts.Filter != nil && !c.Date.IsZero() && w.opts.Filter.BeforeStart(c.Date) {
					stop = true
				}
				if seen[c.URL] {
					continue
				}
				seen[c.URL] = true
				if !w.admit(c) {
					continue
				}
				if !yield(c, nil) {
					return
				}
			}
			if stop {
				w.logger.Info("listing: reached posts before range start, stopping",
					slog.String("url", url), slog.Int("pages", w.pages))
				return
			}
		}
		w.logger.Info("listing: page limit reached", slog.Int("max_pages", w.opts.MaxPages))
	}
}

func (w *ListingWalker) fetchPage(ctx context.Context, url string) ([]Candidate, error) {
	page, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	w.pages++
	doc, err := page.Document()
	if err != nil {
		return nil, err
	}
	candidates, rejected := ParseListing(doc, w.opts.BlogURL)
	for _, r := range rejected {
		w.logger.Debug("listing: skip link", slog.String("link", r.Link), slog.String("reason", r.Reason))
	}
	w.logger.Info("listing: page parsed", slog.String("url", url), slog.Int("candidates", len(candidates)))
	return candidates, nil
}

// admit applies the listing-level pre-filter.
func (w *ListingWalker) admit(c Candidate) bool {
	f := w.opts.Filter
	if f == nil {
		return true
	}
	if !c.Date.IsZero() && !f.InRange(c.Date) {
		w.logger.Debug("listing: skip out of range", slog.String("url", c.URL), slog.String("date", c.Date.String()))
		return false
	}
	if tag, hit := f.ExcludedHit(c.Tags); hit {
		w.logger.Debug("listing: skip excluded tag", slog.String("url", c.URL), slog.String("tag", tag))
		return false
	}
	return true
}
