package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/starford/ljbook/internal/extract"
	"github.com/starford/ljbook/internal/fetch"
	"github.com/starford/ljbook/internal/filter"
	"github.com/starford/ljbook/internal/index"
	"github.com/starford/ljbook/internal/listing"
	"github.com/starford/ljbook/internal/models"
	"github.com/starford/ljbook/internal/scrape"
	"github.com/starford/ljbook/internal/storage"
)

// PostsDir returns the directory posts of the configured journal are saved
// in: <output.dir>/<journal>.
func (c *Config) PostsDir() string {
	journal := models.JournalName(c.Blog.URL)
	if journal == "" {
		journal = models.DefaultBlogName
	}
	return filepath.Join(c.Output.Dir, journal)
}

// RunScrape crawls the configured journal, saves every accepted post and,
// when an index is configured, syncs it with the saved files.
func RunScrape(ctx context.Context, opts ...Option) (scrape.Summary, error) {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return scrape.Summary{}, err
	}
	cfg, logger := app.config, app.logger

	start, end, err := cfg.DateRange.Dates(app.now())
	if err != nil {
		return scrape.Summary{}, err
	}
	if conflicts := cfg.ConflictingTags(); len(conflicts) > 0 {
		logger.Warn("tags are both included and excluded; exclusion wins",
			slog.Any("tags", conflicts))
	}
	f := filter.New(start, end, cfg.IncludedTags, cfg.ExcludedTags)

	fetcher := app.fetcher
	if fetcher == nil {
		client, err := fetch.New(cfg.Scraping.Fetch(), logger)
		if err != nil {
			return scrape.Summary{}, err
		}
		if cfg.Blog.Login {
			if err := client.Login(ctx, cfg.Blog.LoginURL, cfg.Blog.Username, cfg.Blog.Password); err != nil {
				return scrape.Summary{}, err
			}
			logger.Info("logged in", slog.String("user", cfg.Blog.Username))
		}
		fetcher = client
	}

	postsDir := cfg.PostsDir()
	store, err := storage.OpenFS(postsDir)
	if err != nil {
		return scrape.Summary{}, fmt.Errorf("init storage: %w", err)
	}

	logger.Info("scrape starting",
		slog.String("blog", cfg.Blog.URL),
		slog.String("start", start.String()),
		slog.String("end", end.String()),
		slog.String("strategy", cfg.Scraping.Strategy),
		slog.String("posts_dir", postsDir))

	walker := listing.NewWalker(cfg.Scraping.Strategy, fetcher, listing.Options{
		BlogURL:  cfg.Blog.URL,
		PageSize: cfg.Scraping.PageSize,
		MaxPages: cfg.Scraping.MaxPages,
		Filter:   f,
	}, app.now(), logger)

	pipeline := scrape.New(walker, fetcher, extract.New(logger), f, logger, scrape.WithStore(store, ""))
	c, sum, err := pipeline.Run(ctx)
	if err != nil {
		return sum, err
	}

	attrs := []any{
		slog.String("accepted", humanize.Comma(int64(sum.Accepted))),
		slog.String("skipped", humanize.Comma(int64(sum.Skipped))),
		slog.String("failed", humanize.Comma(int64(sum.Failed))),
		slog.Int("listing_pages", sum.Pages),
		slog.String("duration", sum.Duration.Round(time.Millisecond).String()),
	}
	if !c.Empty() {
		first, last := c.Range()
		attrs = append(attrs, slog.String("first", first.String()), slog.String("last", last.String()))
	}
	logger.Info("scrape finished", attrs...)

	if cfg.SQLite.Path != "" {
		if err := syncIndex(cfg.SQLite.Path, store, logger); err != nil {
			logger.Warn("index sync failed", slog.String("error", err.Error()))
		}
	}
	return sum, nil
}

func syncIndex(path string, store storage.Provider, logger *slog.Logger) error {
	db, err := index.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	stats, err := index.Sync(db, store, logger)
	if err != nil {
		return err
	}
	logger.Info("index synced",
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("invalid", stats.Invalid),
		slog.Int("removed", stats.Removed))
	return nil
}
