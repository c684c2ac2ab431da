package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/starford/ljbook/internal/models"
)

// Date elements used by LiveJournal themes, most specific first. The
// detail-page chain additionally accepts div.date.
var (
	listingDateSelectors = []string{
		"time.b-singlepost-author-date",
		"time.entry-date",
		"time.b-singlepost-date",
		"span.b-singlepost-date",
		"time.b-singlepost-date-text",
	}
	postDateSelectors = append(append([]string{}, listingDateSelectors...), "div.date")
)

var (
	reOrdinal = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
	reSpaces  = regexp.MustCompile(`\s+`)

	ruMonths = strings.NewReplacer(
		"января", "January", "февраля", "February", "марта", "March",
		"апреля", "April", "мая", "May", "июня", "June",
		"июля", "July", "августа", "August", "сентября", "September",
		"октября", "October", "ноября", "November", "декабря", "December",
	)
)

var errNoDate = errors.New("no date element")

// ParseDate turns a theme's free-form date text into a calendar day.
func ParseDate(text string) (models.Date, error) {
	s := strings.ReplaceAll(text, "@", " ")
	s = ruMonths.Replace(s)
	s = reOrdinal.ReplaceAllString(s, "$1")
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	s = strings.TrimSuffix(s, ",")
	if s == "" {
		return models.Date{}, fmt.Errorf("extract: empty date %q", text)
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return models.Date{}, fmt.Errorf("extract: parse date %q: %w", text, err)
	}
	return models.DateOf(t), nil
}

// EntryDate finds the publication date inside a listing entry.
func EntryDate(sel *goquery.Selection) (models.Date, error) {
	return findDate(sel, listingDateSelectors)
}

func findDate(sel *goquery.Selection, selectors []string) (models.Date, error) {
	el := first(sel, selectors)
	if el == nil {
		return models.Date{}, errNoDate
	}
	if dt, ok := el.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		if d, err := ParseDate(dt); err == nil {
			return d, nil
		}
	}
	return ParseDate(el.Text())
}

// first returns the first match of the first selector that matches.
func first(sel *goquery.Selection, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		if m := sel.Find(s).First(); m.Length() > 0 {
			return m
		}
	}
	return nil
}
