package fetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ljbook/internal/apperr"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg, quietLogger())
	require.NoError(t, err)
	return c
}

func TestFetch_OK(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, "<html><body><h1>hello</h1></body></html>")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{Timeout: time.Second})
	page, err := c.Fetch(context.Background(), srv.URL+"/1.html")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Equal(t, DefaultUserAgent, ua.Load())

	doc, err := page.Document()
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.Find("h1").Text())
}

func TestFetch_DecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		// "Привет" in windows-1251.
		_, _ = w.Write([]byte{'<', 'p', '>', 0xCF, 0xF0, 0xE8, 0xE2, 0xE5, 0xF2, '<', '/', 'p', '>'})
	}))
	defer srv.Close()

	c := newTestClient(t, Config{})
	page, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "Привет")
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{MaxRetries: 2})
	page, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(page.Body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetch_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{MaxRetries: 1})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var te *apperr.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 2, te.Attempts)
	assert.Equal(t, srv.URL, te.URL)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{MaxRetries: 3})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, apperr.IsTransport(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_DelayBeforeEveryRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	delay := 40 * time.Millisecond
	c := newTestClient(t, Config{Delay: delay})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestFetch_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, Config{MaxRetries: 2})
	_, err := c.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFetch_RespectsRobots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = io.WriteString(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{RespectRobots: true})

	_, err := c.Fetch(context.Background(), srv.URL+"/public/1.html")
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), srv.URL+"/private/2.html")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisallowed)
}

func loginServer(password string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "luid", Value: "abc", Path: "/"})
		_, _ = io.WriteString(w, "home")
	})
	mux.HandleFunc("POST /login.bml", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("luid"); err != nil {
			http.Error(w, "no luid", http.StatusBadRequest)
			return
		}
		if r.FormValue("user") == "alice" && r.FormValue("password") == password {
			http.SetCookie(w, &http.Cookie{Name: "ljloggedin", Value: "1", Path: "/"})
			http.SetCookie(w, &http.Cookie{Name: "ljmastersession", Value: "s", Path: "/"})
		}
		_, _ = io.WriteString(w, "done")
	})
	mux.HandleFunc("GET /protected", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("ljmastersession"); err != nil {
			http.Error(w, "login required", http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, "secret")
	})
	return httptest.NewServer(mux)
}

func TestLogin_SessionCarriesOver(t *testing.T) {
	srv := loginServer("pw")
	defer srv.Close()

	c := newTestClient(t, Config{})
	require.NoError(t, c.Login(context.Background(), srv.URL, "alice", "pw"))

	page, err := c.Fetch(context.Background(), srv.URL+"/protected")
	require.NoError(t, err)
	assert.Equal(t, "secret", string(page.Body))
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := loginServer("pw")
	defer srv.Close()

	c := newTestClient(t, Config{})
	err := c.Login(context.Background(), srv.URL, "alice", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
}
