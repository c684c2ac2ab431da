package assemble

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed style/default.css
var defaultStylesheet []byte

var pages = template.Must(template.New("pages").ParseFS(templateFS, "templates/*.tmpl"))

// Raw HTML in post bodies is dropped; the renderer only emits XHTML it
// produced itself.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
	goldmark.WithRendererOptions(gmhtml.WithXHTML()),
)

type chapterPage struct {
	Lang    string
	Title   string
	Date    string
	URL     string
	Content template.HTML
	Prev    *ref
	Next    *ref
}

type tocPage struct {
	Lang  string
	Title string
	Years []yearGroup
}

type tagsPage struct {
	Lang  string
	Title string
	Tags  []tagGroup
}

type tagPage struct {
	Lang  string
	Title string
	Tag   tagGroup
}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("assemble: render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (b *book) chapter(r *ref) ([]byte, error) {
	content, err := renderMarkdown(r.Post.Body)
	if err != nil {
		return nil, fmt.Errorf("assemble: markdown %s: %w", r.Post.URL, err)
	}
	return render("chapter.xhtml.tmpl", chapterPage{
		Lang:    b.Lang,
		Title:   r.Title,
		Date:    r.Post.PublishedAt.String(),
		URL:     r.Post.URL,
		Content: content,
		Prev:    r.Prev,
		Next:    r.Next,
	})
}

func (b *book) toc() ([]byte, error) {
	return render("toc.xhtml.tmpl", tocPage{Lang: b.Lang, Title: "Table of Contents", Years: b.Years})
}

func (b *book) nav() ([]byte, error) {
	return render("nav.xhtml.tmpl", tocPage{Lang: b.Lang, Title: b.Title, Years: b.Years})
}

func (b *book) tags() ([]byte, error) {
	return render("tags.xhtml.tmpl", tagsPage{Lang: b.Lang, Title: "Tags", Tags: b.Tags})
}

func (b *book) tag(t tagGroup) ([]byte, error) {
	return render("tag.xhtml.tmpl", tagPage{Lang: b.Lang, Title: "Posts: " + t.Tag, Tag: t})
}
