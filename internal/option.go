package internal

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/starford/ljbook/internal/fetch"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	logger  *slog.Logger
	fetcher fetch.Fetcher
	now     func() time.Time
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *slog.Logger) Option {
	return func(a *application) {
		a.logger = logger
	}
}

// WithFetcher replaces the HTTP client used for crawling. Login is skipped
// when a fetcher is supplied.
func WithFetcher(f fetch.Fetcher) Option {
	return func(a *application) {
		a.fetcher = f
	}
}

// WithClock sets the time source used to resolve open date ranges.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// newApplication applies opts and fills in the logger and clock. logOut is
// where a configuration-built JSON logger writes.
func newApplication(opts []Option, logOut io.Writer) (*application, error) {
	app := &application{now: time.Now, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, err
	}
	if app.logger == nil {
		app.logger = NewLogger(app.config.App, logOut)
		slog.SetDefault(app.logger)
	}
	return app, nil
}
