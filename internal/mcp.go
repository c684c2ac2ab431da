package internal

import (
	"context"
	"log/slog"
	"os"

	"github.com/starford/ljbook/internal/index"
	"github.com/starford/ljbook/internal/mcpserver"
)

// RunMCP serves the archive tools over stdio. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	arc, err := openArchive(cfg, logger)
	if err != nil {
		return err
	}
	defer arc.db.Close()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		err := index.Watch(watchCtx, arc.db, arc.store, arc.store.Root(), logger, func(index.ChangeKind, string) {
			arc.svc.Invalidate()
		})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("MCP server starting", slog.String("posts_dir", arc.store.Root()))
	return mcpserver.New(arc.svc, app.version).ServeStdio()
}
