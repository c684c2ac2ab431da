// Package models defines the domain types for ljbook.
package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the canonical textual form of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day. The time of day is always midnight UTC.
type Date struct {
	t time.Time
}

// NewDate returns the Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("models: parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Year returns the calendar year.
func (d Date) Year() int { return d.t.Year() }

// Month returns the calendar month.
func (d Date) Month() time.Month { return d.t.Month() }

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int { return d.t.Compare(o.t) }

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Post is a single blog entry. URL is the identity; values are not mutated
// after NewPost returns.
type Post struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	PublishedAt Date     `json:"date"`
	Tags        []string `json:"tags"`
	Body        string   `json:"body,omitempty"`
}

// NewPost normalises its inputs: the URL fragment is dropped, the title is
// trimmed and tags are trimmed, de-duplicated and sorted.
func NewPost(url, title string, published Date, tags []string, body string) Post {
	return Post{
		URL:         StripFragment(strings.TrimSpace(url)),
		Title:       strings.TrimSpace(title),
		PublishedAt: published,
		Tags:        NormalizeTags(tags),
		Body:        body,
	}
}

// Clone returns a copy of p that shares no slices with it.
func (p Post) Clone() Post {
	p.Tags = slices.Clone(p.Tags)
	return p
}

// HasTag reports whether the post carries tag.
func (p Post) HasTag(tag string) bool {
	_, found := slices.BinarySearch(p.Tags, tag)
	return found
}

// Year returns the publication year.
func (p Post) Year() int { return p.PublishedAt.Year() }

// Less orders posts by publication date, then URL.
func (p Post) Less(o Post) bool {
	return Compare(p, o) < 0
}

// Compare is the corpus ordering: PublishedAt ascending, URL as tie-breaker.
func Compare(a, b Post) int {
	if c := a.PublishedAt.Compare(b.PublishedAt); c != 0 {
		return c
	}
	return strings.Compare(a.URL, b.URL)
}

// NormalizeTags trims, drops empties, de-duplicates and sorts tags. The
// result is always a fresh, non-nil slice.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// StripFragment removes a trailing #fragment from a URL.
func StripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}
