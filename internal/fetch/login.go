package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// DefaultLoginURL is the LiveJournal site that issues session cookies.
const DefaultLoginURL = "https://www.livejournal.com"

// Session cookies LiveJournal sets after a successful login.
const (
	cookieLUID          = "luid"
	cookieLoggedIn      = "ljloggedin"
	cookieMasterSession = "ljmastersession"
)

// ErrLoginFailed is returned when the login form did not yield a session.
var ErrLoginFailed = errors.New("login failed")

// Login signs in to LiveJournal. It first visits the site to obtain the
// luid cookie the login form requires, then posts the credentials; the
// resulting session cookies stay in the client's jar for every later fetch.
func (c *Client) Login(ctx context.Context, loginURL, username, password string) error {
	loginURL = strings.TrimRight(loginURL, "/")
	base, err := url.Parse(loginURL)
	if err != nil {
		return fmt.Errorf("fetch: login url: %w", err)
	}

	resp, err := c.do(ctx, http.MethodGet, loginURL+"/", nil, "")
	if err != nil {
		return fmt.Errorf("fetch: login: pre-connect: %w", err)
	}
	resp.Body.Close()
	if !c.hasCookie(base, cookieLUID) {
		return fmt.Errorf("fetch: login: %w: %s cookie not issued", ErrLoginFailed, cookieLUID)
	}

	form := url.Values{"user": {username}, "password": {password}}
	resp, err = c.do(ctx, http.MethodPost, loginURL+"/login.bml", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return fmt.Errorf("fetch: login: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("fetch: login returned unexpected status", slog.Int("status", resp.StatusCode))
	}

	for _, name := range []string{cookieLoggedIn, cookieMasterSession} {
		if !c.hasCookie(base, name) {
			return fmt.Errorf("fetch: login as %s: %w: %s cookie not issued", username, ErrLoginFailed, name)
		}
	}
	c.logger.Info("fetch: logged in", slog.String("user", username))
	return nil
}

func (c *Client) hasCookie(u *url.URL, name string) bool {
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name && ck.Value != "" {
			return true
		}
	}
	return false
}
