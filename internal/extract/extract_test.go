package extract

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/fetch"
	"github.com/starford/ljbook/internal/models"
)

const postURL = "https://user.livejournal.com/1234.html"

func newExtractor() *Extractor {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func page(html string) *fetch.Page {
	return &fetch.Page{URL: postURL, Status: 200, Body: []byte(html)}
}

const singlePost = `<html><body>
<h1 class="b-singlepost-title">Первый пост</h1>
<time class="b-singlepost-author-date">March 5th, 2014</time>
<div class="b-singlepost-tags"><a href="/tag/b">books</a><a href="/tag/a">art</a></div>
<article class="b-singlepost-body entry-content e-content">
<p>Hello <b>world</b>.</p>
<script>alert(1)</script>
<iframe src="https://example.com/embed"></iframe>
<a href="/1234.html?cut">Read more</a>
<div class="lj-cut">cut marker</div>
<p>Second <a href="/other.html">link</a>.</p>
</article>
</body></html>`

func TestExtract_SinglePostTheme(t *testing.T) {
	post, err := newExtractor().Extract(page(singlePost))
	require.NoError(t, err)

	assert.Equal(t, postURL, post.URL)
	assert.Equal(t, "Первый пост", post.Title)
	assert.Equal(t, models.NewDate(2014, 3, 5), post.PublishedAt)
	assert.Equal(t, []string{"art", "books"}, post.Tags)

	assert.Contains(t, post.Body, "Hello **world**.")
	assert.Contains(t, post.Body, "[link](https://user.livejournal.com/other.html)")
	assert.NotContains(t, post.Body, "alert")
	assert.NotContains(t, post.Body, "Read more")
	assert.NotContains(t, post.Body, "cut marker")
	assert.NotContains(t, post.Body, "embed")
}

func TestExtract_ClassicThemeAndDatetimeAttr(t *testing.T) {
	html := `<html><body>
<div class="subject">Old style</div>
<time class="entry-date" datetime="2015-01-02T23:10:00+04:00">2 января</time>
<div class="entry-content"><p>Body text</p></div>
</body></html>`

	post, err := newExtractor().Extract(page(html))
	require.NoError(t, err)
	assert.Equal(t, "Old style", post.Title)
	assert.Equal(t, models.NewDate(2015, 1, 2), post.PublishedAt)
	assert.Empty(t, post.Tags)
	assert.Equal(t, "Body text", post.Body)
}

func TestExtract_MissingTitle(t *testing.T) {
	html := `<html><body><time class="entry-date">2014-03-05</time><div class="entry-content">x</div></body></html>`
	_, err := newExtractor().Extract(page(html))
	require.Error(t, err)
	assert.True(t, apperr.IsParse(err))
}

func TestExtract_MissingDate(t *testing.T) {
	html := `<html><body><h1 class="entry-title">T</h1><div class="entry-content">x</div></body></html>`
	_, err := newExtractor().Extract(page(html))
	require.Error(t, err)
	assert.True(t, apperr.IsParse(err))
}

func TestExtract_InvalidDate(t *testing.T) {
	html := `<html><body><h1 class="entry-title">T</h1><time class="entry-date">someday</time><div class="entry-content">x</div></body></html>`
	_, err := newExtractor().Extract(page(html))
	require.Error(t, err)

	var pe *apperr.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, postURL, pe.URL)
}

func TestParseDate(t *testing.T) {
	cases := map[string]models.Date{
		"2014-03-05 12:34:00":       models.NewDate(2014, 3, 5),
		"March 5th, 2014":           models.NewDate(2014, 3, 5),
		"2014-03-05 @ 12:34":        models.NewDate(2014, 3, 5),
		"03 февраля 2013":           models.NewDate(2013, 2, 3),
		"2015-01-02T23:10:00+04:00": models.NewDate(2015, 1, 2),
	}
	for in, want := range cases {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDate("  @ ")
	assert.Error(t, err)
}

func TestTags_FirstContainerOnly(t *testing.T) {
	html := `<div class="entry-tags"><a>x</a><a>y</a></div><ul class="b-singlepost-tags-list"><li><a>z</a></li></ul>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, Tags(doc.Selection))
}
