// Package extract turns a LiveJournal post page into a models.Post.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/fetch"
	"github.com/starford/ljbook/internal/models"
)

var (
	titleSelectors = []string{
		"h1.entry-title",
		"h1.b-singlepost-title",
		"h1.b-singlepost-title-link",
		"h1.b-singlepost-title-text",
		"div.subject",
	}
	tagSelectors = []string{
		"div.b-singlepost-tags",
		"div.entry-tags",
		"ul.b-singlepost-tags-list",
	}
	bodySelectors = []string{
		"article.b-singlepost-body.entry-content",
		"div.entry-content",
		"div.b-singlepost-body",
		"div.b-singlepost-bodytext",
		"div.b-singlepost-body-text",
		"div.b-singlepost-body-text-wrapper",
		"div.entry_text",
	}
	readMoreLabels = []string{"Read more", "Читать дальше"}
)

// Extractor parses post pages. It is stateless apart from its logger.
type Extractor struct {
	logger *slog.Logger
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract builds a Post from page. Pages without a title, a parsable date
// or any body content yield a *apperr.ParseError.
func (e *Extractor) Extract(page *fetch.Page) (models.Post, error) {
	doc, err := page.Document()
	if err != nil {
		return models.Post{}, &apperr.ParseError{URL: page.URL, Reason: err.Error()}
	}

	title := ""
	if el := first(doc.Selection, titleSelectors); el != nil {
		title = strings.TrimSpace(el.Text())
	}
	if title == "" {
		return models.Post{}, &apperr.ParseError{URL: page.URL, Reason: "no title"}
	}

	date, err := findDate(doc.Selection, postDateSelectors)
	if err != nil {
		return models.Post{}, &apperr.ParseError{URL: page.URL, Reason: err.Error()}
	}

	body, err := e.body(doc, page)
	if err != nil {
		return models.Post{}, err
	}

	return models.NewPost(page.URL, title, date, Tags(doc.Selection), body), nil
}

// Tags returns the link texts of the first tag container inside sel.
func Tags(sel *goquery.Selection) []string {
	box := first(sel, tagSelectors)
	if box == nil {
		return nil
	}
	var tags []string
	box.Find("a").Each(func(_ int, a *goquery.Selection) {
		tags = append(tags, a.Text())
	})
	return tags
}

func (e *Extractor) body(doc *goquery.Document, page *fetch.Page) (string, error) {
	var html string
	if content := first(doc.Selection, bodySelectors); content != nil {
		clean(content)
		h, err := content.Html()
		if err != nil {
			return "", &apperr.ParseError{URL: page.URL, Reason: fmt.Sprintf("render body: %v", err)}
		}
		html = h
	} else {
		h, err := readable(page)
		if err != nil {
			return "", &apperr.ParseError{URL: page.URL, Reason: "no post body"}
		}
		e.logger.Debug("extract: body taken from readability fallback", slog.String("url", page.URL))
		html = h
	}

	md, err := htmltomarkdown.ConvertString(html, converter.WithDomain(page.URL))
	if err != nil {
		return "", &apperr.ParseError{URL: page.URL, Reason: fmt.Sprintf("convert body: %v", err)}
	}
	return strings.TrimSpace(md), nil
}

// clean strips scripts, embeds and cut markers from a post body in place.
func clean(content *goquery.Selection) {
	content.Find("script, style, iframe, div.lj-cut").Remove()
	content.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
		text := a.Text()
		for _, label := range readMoreLabels {
			if strings.Contains(text, label) {
				return true
			}
		}
		return false
	}).Remove()
}

func readable(page *fetch.Page) (string, error) {
	u, err := url.Parse(page.URL)
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(bytes.NewReader(page.Body), u)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(article.Content) == "" {
		return "", errors.New("empty article")
	}
	return article.Content, nil
}
