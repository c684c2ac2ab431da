// Package fetch retrieves blog pages over HTTP with bounded retries, a
// mandatory delay before every request and a per-request timeout.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/starford/ljbook/internal/apperr"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

const maxBodySize = 20 << 20

// ErrDisallowed is returned for URLs excluded by robots.txt.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Config controls request behaviour.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	Delay         time.Duration
	MaxRetries    int
	RespectRobots bool
}

// Page is a fetched HTML page decoded to UTF-8. URL is the requested URL,
// not the one reached after redirects.
type Page struct {
	URL    string
	Status int
	Body   []byte
}

// Document parses the page with goquery.
func (p *Page) Document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("fetch: parse %s: %w", p.URL, err)
	}
	return doc, nil
}

// Fetcher returns the page at url or a *apperr.TransportError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Client is the HTTP Fetcher. It keeps a cookie jar so a login session
// carries over to every later request.
type Client struct {
	http    *http.Client
	cfg     Config
	limiter *rate.Limiter
	robots  *robotsCache
	logger  *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is used for
// the login session when set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a Client.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("fetch: cookie jar: %w", err)
	}
	c := &Client{
		http:    &http.Client{Timeout: cfg.Timeout, Jar: jar},
		cfg:     cfg,
		limiter: newLimiter(cfg.Delay),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	if cfg.RespectRobots {
		c.robots = newRobotsCache(c, cfg.UserAgent)
	}
	return c, nil
}

// newLimiter returns a limiter that admits one request per delay. Its
// initial token is drained so the very first request waits as well.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	l := rate.NewLimiter(rate.Every(delay), 1)
	l.Allow()
	return l
}

// Jar exposes the session cookie jar.
func (c *Client) Jar() http.CookieJar { return c.http.Jar }

// Fetch retrieves url. Every attempt waits for the request delay first.
// Network errors, 5xx and 429 responses are retried up to MaxRetries
// times; other non-200 statuses fail immediately.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	if c.robots != nil && !c.robots.allowed(ctx, url) {
		return nil, &apperr.TransportError{URL: url, Attempts: 0, Err: ErrDisallowed}
	}

	page, attempts, err := retryWithContext(ctx, c.cfg.MaxRetries+1, func(ctx context.Context) (*Page, error) {
		return c.get(ctx, url)
	})
	if err != nil {
		return nil, &apperr.TransportError{URL: url, Attempts: attempts, Err: err}
	}
	if attempts > 1 {
		c.logger.Debug("fetch: succeeded after retry", slog.String("url", url), slog.Int("attempts", attempts))
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, url string) (*Page, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil, "")
	if err != nil {
		c.logger.Debug("fetch: attempt failed", slog.String("url", url), slog.String("error", err.Error()))
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		c.logger.Debug("fetch: attempt failed", slog.String("url", url), slog.Int("status", resp.StatusCode))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, permanent(err)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}
	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Page{URL: url, Status: resp.StatusCode, Body: body}, nil
}

// do sends one rate-limited request bounded by the per-request timeout.
func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		resp, err := c.send(ctx, method, url, body, contentType)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return c.send(ctx, method, url, body, contentType)
}

func (c *Client) send(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.http.Do(req)
}

// cancelBody releases the per-request timeout once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
