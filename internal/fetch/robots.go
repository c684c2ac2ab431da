package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache fetches robots.txt once per host. Hosts whose robots.txt
// cannot be fetched or parsed are treated as allowing everything.
type robotsCache struct {
	client    *Client
	userAgent string

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func newRobotsCache(c *Client, userAgent string) *robotsCache {
	return &robotsCache{client: c, userAgent: userAgent, groups: make(map[string]*robotstxt.Group)}
}

func (r *robotsCache) allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	group := r.group(ctx, u)
	if group == nil {
		return true
	}
	return group.Test(u.RequestURI())
}

func (r *robotsCache) group(ctx context.Context, u *url.URL) *robotstxt.Group {
	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.groups[key]; ok {
		return g
	}

	var group *robotstxt.Group
	resp, err := r.client.do(ctx, http.MethodGet, key+"/robots.txt", nil, "")
	if err != nil {
		r.client.logger.Warn("fetch: robots.txt unavailable, allowing all", slog.String("host", u.Host), slog.String("error", err.Error()))
	} else {
		data, err := robotstxt.FromResponse(resp)
		resp.Body.Close()
		if err != nil {
			r.client.logger.Warn("fetch: robots.txt unparsable, allowing all", slog.String("host", u.Host), slog.String("error", err.Error()))
		} else {
			group = data.FindGroup(r.userAgent)
		}
	}
	r.groups[key] = group
	return group
}
