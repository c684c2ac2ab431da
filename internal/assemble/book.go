package assemble

import (
	"fmt"
	"slices"
	"time"

	"github.com/starford/ljbook/internal/linkgraph"
	"github.com/starford/ljbook/internal/models"
)

// ref is a chapter as other pages link to it.
type ref struct {
	ID    string
	File  string
	Title string
	Post  models.Post
	Prev  *ref
	Next  *ref
}

type yearGroup struct {
	Year  int
	Posts []*ref
}

type tagGroup struct {
	ID    string
	Tag   string
	File  string
	Posts []*ref
}

// Newest lists the tag's posts newest first.
func (t tagGroup) Newest() []*ref {
	out := slices.Clone(t.Posts)
	slices.Reverse(out)
	return out
}

// book is the fully linked page plan of one container.
type book struct {
	Title      string
	Author     string
	Lang       string
	Identifier string
	Modified   time.Time

	Chapters []*ref
	Years    []yearGroup // newest year first
	Tags     []tagGroup  // sorted by tag
}

type meta struct {
	Title      string
	Author     string
	Lang       string
	Identifier string
}

// planBook assigns file names to every post and tag and resolves all
// cross references through the graph.
func planBook(g *linkgraph.Graph, m meta) *book {
	b := &book{
		Title:      m.Title,
		Author:     m.Author,
		Lang:       m.Lang,
		Identifier: m.Identifier,
	}

	byURL := make(map[string]*ref)
	perDate := make(map[string]int)
	for i, p := range g.Corpus().All() {
		base := "chapter_" + p.PublishedAt.String()
		perDate[base]++
		file := base + ".xhtml"
		if n := perDate[base]; n > 1 {
			file = fmt.Sprintf("%s_%d.xhtml", base, n)
		}
		r := &ref{
			ID:    fmt.Sprintf("chap%04d", i+1),
			File:  file,
			Title: p.Title,
			Post:  p,
		}
		b.Chapters = append(b.Chapters, r)
		byURL[p.URL] = r
		b.Modified = p.PublishedAt.Time()
	}

	for _, r := range b.Chapters {
		nb, _ := g.Neighbors(r.Post.URL)
		r.Prev = byURL[nb.Prev]
		r.Next = byURL[nb.Next]
	}

	years := g.Years()
	for i := len(years) - 1; i >= 0; i-- {
		b.Years = append(b.Years, yearGroup{Year: years[i].Year, Posts: refs(years[i].Posts, byURL)})
	}

	for i, t := range g.Tags() {
		b.Tags = append(b.Tags, tagGroup{
			ID:    fmt.Sprintf("tag%03d", i+1),
			Tag:   t.Tag,
			File:  fmt.Sprintf("tag_%03d.xhtml", i+1),
			Posts: refs(t.Posts, byURL),
		})
	}
	return b
}

func refs(posts []models.Post, byURL map[string]*ref) []*ref {
	out := make([]*ref, 0, len(posts))
	for _, p := range posts {
		out = append(out, byURL[p.URL])
	}
	return out
}
