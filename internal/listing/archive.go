package listing

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/ljbook/internal/fetch"
	"github.com/starford/ljbook/internal/models"
)

// Crawl strategies.
const (
	StrategyAuto    = "auto"
	StrategyListing = "listing"
	StrategyArchive = "archive"
)

// ArchiveWalker visits the monthly archive pages <blog>/YYYY/MM/ from the
// range start month through the range end month.
type ArchiveWalker struct {
	fetcher fetch.Fetcher
	blogURL string
	from    models.Date
	to      models.Date
	logger  *slog.Logger
	pages   int
}

// NewArchiveWalker creates an ArchiveWalker for the inclusive month span
// covering from and to.
func NewArchiveWalker(f fetch.Fetcher, blogURL string, from, to models.Date, logger *slog.Logger) *ArchiveWalker {
	return &ArchiveWalker{
		fetcher: f,
		blogURL: strings.TrimRight(blogURL, "/"),
		from:    from,
		to:      to,
		logger:  logger,
	}
}

// ArchiveURL returns the monthly archive page for year and month.
func ArchiveURL(blogURL string, year int, month time.Month) string {
	return fmt.Sprintf("%s/%04d/%02d/", strings.TrimRight(blogURL, "/"), year, int(month))
}

// Pages implements Walker.
func (w *ArchiveWalker) Pages() int { return w.pages }

// Walk implements Walker. Archive pages carry no dates or tags, so
// candidates are left for the filter to decide after extraction.
func (w *ArchiveWalker) Walk(ctx context.Context) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		seen := make(map[string]bool)
		last := monthOf(w.to)
		for m := monthOf(w.from); !m.After(last); m = m.AddDate(0, 1, 0) {
			url := ArchiveURL(w.blogURL, m.Year(), m.Month())
			page, err := w.fetcher.Fetch(ctx, url)
			if err != nil {
				yield(Candidate{}, err)
				return
			}
			w.pages++
			doc, err := page.Document()
			if err != nil {
				yield(Candidate{}, err)
				return
			}

			found := 0
			links := doc.Find("a[href]").Map(func(_ int, a *goquery.Selection) string {
				href, _ := a.Attr("href")
				return href
			})
			for _, href := range links {
				link, reason := PostLink(href, w.blogURL)
				if reason != "" || seen[link] {
					continue
				}
				seen[link] = true
				found++
				if !yield(Candidate{URL: link}, nil) {
					return
				}
			}
			w.logger.Info("listing: archive month parsed", slog.String("url", url), slog.Int("candidates", found))
		}
	}
}

func monthOf(d models.Date) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NewWalker picks the crawl strategy. Auto uses the monthly archive when
// the range starts before the current year, since the listing would have
// to page through every newer post first.
func NewWalker(strategy string, f fetch.Fetcher, opts Options, now time.Time, logger *slog.Logger) Walker {
	useArchive := strategy == StrategyArchive
	if strategy == StrategyAuto || strategy == "" {
		useArchive = opts.Filter != nil && !opts.Filter.Start().IsZero() && opts.Filter.Start().Year() < now.Year()
	}
	if useArchive && opts.Filter != nil && !opts.Filter.Start().IsZero() {
		end := opts.Filter.End()
		if end.IsZero() || end.After(models.DateOf(now)) {
			end = models.DateOf(now)
		}
		logger.Info("listing: using monthly archive", slog.String("from", opts.Filter.Start().String()), slog.String("to", end.String()))
		return NewArchiveWalker(f, opts.BlogURL, opts.Filter.Start(), end, logger)
	}
	if useArchive {
		logger.Warn("listing: archive strategy needs a range start, falling back to listing")
	}
	return NewListingWalker(f, opts, logger)
}
