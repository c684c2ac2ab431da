// Package scrape runs the crawl: walk the listing, fetch and extract each
// candidate, filter, and collect accepted posts into a corpus.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/corpus"
	"github.com/starford/ljbook/internal/fetch"
	"github.com/starford/ljbook/internal/filter"
	"github.com/starford/ljbook/internal/listing"
	"github.com/starford/ljbook/internal/models"
	"github.com/starford/ljbook/internal/postfile"
	"github.com/starford/ljbook/internal/storage"
)

// Extractor turns a fetched post page into a Post.
type Extractor interface {
	Extract(page *fetch.Page) (models.Post, error)
}

// Summary reports the outcome of a run.
type Summary struct {
	Accepted int
	Skipped  int
	Failed   int
	Pages    int
	Saved    []string
	Duration time.Duration
}

// Pipeline is a single crawl run. It is sequential; every network request
// goes through the Fetcher and its delay.
type Pipeline struct {
	walker    listing.Walker
	fetcher   fetch.Fetcher
	extractor Extractor
	filter    *filter.Filter
	logger    *slog.Logger

	store storage.Provider
	dir   string
	// byURL maps a post URL to the files already holding it; filled on the
	// first save.
	byURL map[string][]string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore persists every accepted post as a post file under dir.
func WithStore(store storage.Provider, dir string) Option {
	return func(p *Pipeline) {
		p.store = store
		p.dir = dir
	}
}

// New creates a Pipeline.
func New(walker listing.Walker, fetcher fetch.Fetcher, extractor Extractor, f *filter.Filter, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		walker:    walker,
		fetcher:   fetcher,
		extractor: extractor,
		filter:    f,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run crawls until the walker is exhausted. A listing failure or a storage
// failure aborts the run; post fetch and parse failures are counted and
// skipped. The returned corpus holds every accepted post.
func (p *Pipeline) Run(ctx context.Context) (*corpus.Corpus, Summary, error) {
	var sum Summary
	start := time.Now()
	b := corpus.NewBuilder()

	finish := func() {
		sum.Accepted = b.Len()
		sum.Pages = p.walker.Pages()
		sum.Duration = time.Since(start)
	}

	for cand, err := range p.walker.Walk(ctx) {
		if err != nil {
			finish()
			return nil, sum, fmt.Errorf("scrape: listing: %w", err)
		}

		post, ok, err := p.process(ctx, cand, &sum)
		if err != nil {
			finish()
			return nil, sum, err
		}
		if !ok {
			continue
		}

		if b.Add(post) {
			p.logger.Debug("scrape: post replaced", slog.String("url", post.URL))
		}
		if p.store != nil {
			name, err := p.save(post)
			if err != nil {
				finish()
				return nil, sum, err
			}
			sum.Saved = append(sum.Saved, name)
		}
		p.logger.Info("scrape: post accepted",
			slog.String("url", post.URL),
			slog.String("date", post.PublishedAt.String()),
			slog.String("title", post.Title))
	}

	finish()
	return b.Build(), sum, nil
}

// process fetches, extracts and filters one candidate. ok is false when the
// post was skipped; err is set only for conditions that end the run.
func (p *Pipeline) process(ctx context.Context, cand listing.Candidate, sum *Summary) (models.Post, bool, error) {
	page, err := p.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		if ctx.Err() != nil {
			return models.Post{}, false, fmt.Errorf("scrape: %w", ctx.Err())
		}
		sum.Failed++
		p.logger.Warn("scrape: post fetch failed", slog.String("url", cand.URL), slog.String("error", err.Error()))
		return models.Post{}, false, nil
	}

	post, err := p.extractor.Extract(page)
	if err != nil {
		sum.Skipped++
		var pe *apperr.ParseError
		if errors.As(err, &pe) {
			p.logger.Warn("scrape: post skipped", slog.String("url", pe.URL), slog.String("reason", pe.Reason))
		} else {
			p.logger.Warn("scrape: post skipped", slog.String("url", cand.URL), slog.String("error", err.Error()))
		}
		return models.Post{}, false, nil
	}

	if d := p.filter.Decide(post); !d.Accepted {
		sum.Skipped++
		attrs := []any{slog.String("url", post.URL), slog.String("reason", string(d.Reason))}
		if d.Tag != "" {
			attrs = append(attrs, slog.String("tag", d.Tag))
		}
		p.logger.Info("scrape: post filtered", attrs...)
		return models.Post{}, false, nil
	}
	return post, true, nil
}

// save writes post and removes any other file holding the same URL, so a
// retitled or redated post replaces its earlier file instead of sitting
// next to it.
func (p *Pipeline) save(post models.Post) (string, error) {
	if p.byURL == nil {
		if err := p.scanExisting(); err != nil {
			return "", err
		}
	}
	data, err := postfile.Encode(post)
	if err != nil {
		return "", fmt.Errorf("scrape: encode %s: %w", post.URL, err)
	}
	name := path.Join(p.dir, postfile.FileName(post))
	if err := p.store.Write(name, data); err != nil {
		return "", fmt.Errorf("scrape: save %s: %w", post.URL, err)
	}
	for _, old := range p.byURL[post.URL] {
		if old == name {
			continue
		}
		if err := p.store.Delete(old); err != nil {
			return "", fmt.Errorf("scrape: remove stale %s: %w", old, err)
		}
		p.logger.Info("scrape: replaced stale post file", slog.String("url", post.URL), slog.String("path", old))
	}
	p.byURL[post.URL] = []string{name}
	return name, nil
}

// scanExisting records which stored files hold which URL. Unreadable files
// are left alone.
func (p *Pipeline) scanExisting() error {
	metas, err := p.store.List(p.dir, postfile.Ext)
	if err != nil {
		return fmt.Errorf("scrape: list stored posts: %w", err)
	}
	p.byURL = make(map[string][]string, len(metas))
	for _, m := range metas {
		data, err := p.store.Read(m.Path)
		if err != nil {
			continue
		}
		post, err := postfile.Decode(m.Path, data)
		if err != nil {
			continue
		}
		p.byURL[post.URL] = append(p.byURL[post.URL], m.Path)
	}
	return nil
}
