package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/assemble"
	"github.com/starford/ljbook/internal/corpus"
	"github.com/starford/ljbook/internal/storage"
)

// BuildRequest selects the books to build. With no years and EachYear
// unset, one book covers every stored post.
type BuildRequest struct {
	Years    []int
	EachYear bool
}

// NewAssembler creates the book assembler for cfg, writing into
// output.book_dir.
func NewAssembler(cfg *Config, logger *slog.Logger) (*assemble.Assembler, error) {
	books, err := storage.OpenFS(cfg.Output.BookDir)
	if err != nil {
		return nil, fmt.Errorf("init book storage: %w", err)
	}
	var css []byte
	if cfg.Build.Stylesheet != "" {
		css, err = os.ReadFile(cfg.Build.Stylesheet)
		if err != nil {
			return nil, &apperr.ConfigError{Err: fmt.Errorf("build.stylesheet: %w", err)}
		}
	}
	return assemble.New(books, assemble.Options{
		Title:      cfg.Build.Title,
		Author:     cfg.Build.Author,
		Language:   cfg.Build.Language,
		BlogURL:    cfg.Blog.URL,
		Stylesheet: css,
	}, logger), nil
}

// RunBuild assembles books from the saved posts. An empty scope is logged
// and skipped; the run fails only when every requested scope was empty.
func RunBuild(ctx context.Context, req BuildRequest, opts ...Option) ([]assemble.Result, error) {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return nil, err
	}
	cfg, logger := app.config, app.logger

	store, err := storage.OpenFS(cfg.PostsDir())
	if err != nil {
		return nil, fmt.Errorf("open posts: %w", err)
	}
	c, stats, err := corpus.Load(store, "", logger)
	if err != nil {
		return nil, err
	}
	logger.Info("posts loaded",
		slog.String("posts_dir", store.Root()),
		slog.Int("files", stats.Files),
		slog.Int("posts", stats.Loaded),
		slog.Int("invalid", stats.Invalid),
		slog.Int("duplicates", stats.Duplicates))

	asm, err := NewAssembler(cfg, logger)
	if err != nil {
		return nil, err
	}

	years := req.Years
	if req.EachYear {
		years = c.Years()
	}
	if len(years) == 0 {
		years = []int{0}
	}

	var (
		results []assemble.Result
		lastErr error
	)
	for _, y := range years {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := asm.Build(c, y)
		if err != nil {
			var empty *apperr.EmptyCorpusError
			if errors.As(err, &empty) {
				logger.Warn("nothing to build", slog.String("scope", empty.Scope))
				lastErr = err
				continue
			}
			return results, err
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return nil, lastErr
	}
	return results, nil
}
