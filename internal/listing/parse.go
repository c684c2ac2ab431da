package listing

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/starford/ljbook/internal/extract"
	"github.com/starford/ljbook/internal/models"
)

var rePostLink = regexp.MustCompile(`\d+\.html$`)

// Candidate is a post link discovered on a listing or archive page. Date
// and Tags are zero when the page does not expose them.
type Candidate struct {
	URL  string
	Date models.Date
	Tags []string
}

// Rejected is a link dropped by the structural filter.
type Rejected struct {
	Link   string
	Reason string
}

// ParseListing extracts candidates from a listing page. Entries are div
// elements whose class contains "entry" or "b-singlepost"; the first link
// of each entry is the candidate. Links repeated on the page are reported
// once.
func ParseListing(doc *goquery.Document, blogURL string) ([]Candidate, []Rejected) {
	prefix := strings.TrimRight(blogURL, "/")
	var (
		out      []Candidate
		rejected []Rejected
		seen     = make(map[string]bool)
	)
	doc.Find("div").FilterFunction(isEntry).Each(func(_ int, entry *goquery.Selection) {
		href, ok := entry.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		link, reason := PostLink(href, prefix)
		if reason != "" {
			rejected = append(rejected, Rejected{Link: href, Reason: reason})
			return
		}
		if seen[link] {
			return
		}
		seen[link] = true

		c := Candidate{URL: link, Tags: models.NormalizeTags(extract.Tags(entry))}
		if d, err := extract.EntryDate(entry); err == nil {
			c.Date = d
		}
		out = append(out, c)
	})
	return out, rejected
}

// PostLink validates href as a post of the blog at prefix and returns it
// without its fragment. Hosts compare case-insensitively and http and https
// are treated alike; the returned link uses the blog's scheme and host. A
// non-empty reason means the link was rejected.
func PostLink(href, prefix string) (string, string) {
	if strings.Contains(href, "/profile/") {
		return "", "profile link"
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil || !webScheme(u.Scheme) || u.Host == "" {
		return "", "not an http link"
	}
	base, err := url.Parse(strings.TrimRight(prefix, "/"))
	if err != nil || !strings.EqualFold(u.Hostname(), base.Hostname()) ||
		!strings.HasPrefix(u.Path, base.Path+"/") {
		return "", "outside blog"
	}
	u.Scheme, u.Host = base.Scheme, base.Host
	link := models.StripFragment(u.String())
	if !rePostLink.MatchString(link) {
		return "", "not a post link"
	}
	return link, ""
}

func webScheme(s string) bool {
	return strings.EqualFold(s, "http") || strings.EqualFold(s, "https")
}

func isEntry(_ int, s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	for _, c := range strings.Fields(class) {
		if strings.Contains(c, "entry") || strings.Contains(c, "b-singlepost") {
			return true
		}
	}
	return false
}
