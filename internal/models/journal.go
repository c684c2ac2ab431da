package models

import (
	"net/url"
	"regexp"
	"strings"
)

var ljHostRe = regexp.MustCompile(`https?://([^.]+)\.livejournal\.com`)

// DefaultBlogName names books whose posts carry no recognisable journal URL.
const DefaultBlogName = "lj_posts"

// JournalName returns the journal's subdomain ("evo-lutio" for
// https://evo-lutio.livejournal.com), or the host when the URL is not a
// livejournal.com subdomain.
func JournalName(blogURL string) string {
	if m := ljHostRe.FindStringSubmatch(blogURL); m != nil {
		return m[1]
	}
	u, err := url.Parse(blogURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.SplitN(u.Hostname(), ".", 2)[0]
}

// BlogName returns the book-safe journal name (dashes become underscores),
// or "" when blogURL is not a livejournal.com journal.
func BlogName(blogURL string) string {
	m := ljHostRe.FindStringSubmatch(blogURL)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], "-", "_")
}
