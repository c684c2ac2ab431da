// Package linkgraph derives navigation (chronological chain, year and tag
// indexes) from a corpus.
package linkgraph

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/starford/ljbook/internal/corpus"
	"github.com/starford/ljbook/internal/models"
)

// Neighbors are the URLs of the adjacent posts; empty at the boundaries.
type Neighbors struct {
	Prev string
	Next string
}

// YearBucket lists the posts of one year in chronological order.
type YearBucket struct {
	Year  int
	Posts []models.Post
}

// TagBucket lists the posts carrying one tag in chronological order.
type TagBucket struct {
	Tag   string
	Posts []models.Post
}

// Graph is a read-only view over the corpus it was built from.
type Graph struct {
	corpus *corpus.Corpus
	chain  map[string]Neighbors
	years  []YearBucket
	tags   []TagBucket
}

// Build derives the graph. The result depends only on the corpus contents.
func Build(c *corpus.Corpus) *Graph {
	g := &Graph{
		corpus: c,
		chain:  make(map[string]Neighbors, c.Len()),
	}

	byTag := make(map[string][]models.Post)
	for i, p := range c.All() {
		var n Neighbors
		if i > 0 {
			n.Prev = c.At(i - 1).URL
		}
		if i < c.Len()-1 {
			n.Next = c.At(i + 1).URL
		}
		g.chain[p.URL] = n

		if last := len(g.years) - 1; last < 0 || g.years[last].Year != p.Year() {
			g.years = append(g.years, YearBucket{Year: p.Year()})
		}
		g.years[len(g.years)-1].Posts = append(g.years[len(g.years)-1].Posts, p)

		for _, t := range p.Tags {
			byTag[t] = append(byTag[t], p)
		}
	}

	names := make([]string, 0, len(byTag))
	for t := range byTag {
		names = append(names, t)
	}
	slices.Sort(names)
	g.tags = make([]TagBucket, 0, len(names))
	for _, t := range names {
		g.tags = append(g.tags, TagBucket{Tag: t, Posts: byTag[t]})
	}
	return g
}

// Corpus returns the corpus the graph was built from.
func (g *Graph) Corpus() *corpus.Corpus { return g.corpus }

// Neighbors returns the chain entry for url.
func (g *Graph) Neighbors(url string) (Neighbors, bool) {
	n, ok := g.chain[url]
	return n, ok
}

// Prev returns the post published before url, if any.
func (g *Graph) Prev(url string) (models.Post, bool) {
	return g.corpus.Get(g.chain[url].Prev)
}

// Next returns the post published after url, if any.
func (g *Graph) Next(url string) (models.Post, bool) {
	return g.corpus.Get(g.chain[url].Next)
}

// Years returns the year buckets in ascending year order.
func (g *Graph) Years() []YearBucket {
	out := make([]YearBucket, len(g.years))
	for i, b := range g.years {
		out[i] = YearBucket{Year: b.Year, Posts: corpus.ClonePosts(b.Posts)}
	}
	return out
}

// Year returns the posts of year in chronological order.
func (g *Graph) Year(year int) []models.Post {
	i, found := slices.BinarySearchFunc(g.years, year, func(b YearBucket, y int) int { return b.Year - y })
	if !found {
		return nil
	}
	return corpus.ClonePosts(g.years[i].Posts)
}

// Tags returns the tag buckets sorted by tag.
func (g *Graph) Tags() []TagBucket {
	out := make([]TagBucket, len(g.tags))
	for i, b := range g.tags {
		out[i] = TagBucket{Tag: b.Tag, Posts: corpus.ClonePosts(b.Posts)}
	}
	return out
}

// Tag returns the posts carrying tag in chronological order.
func (g *Graph) Tag(tag string) []models.Post {
	i, found := slices.BinarySearchFunc(g.tags, tag, func(b TagBucket, t string) int {
		switch {
		case b.Tag < t:
			return -1
		case b.Tag > t:
			return 1
		}
		return 0
	})
	if !found {
		return nil
	}
	return corpus.ClonePosts(g.tags[i].Posts)
}

// YearIndex maps each year ("2014") to the URLs published in it.
func (g *Graph) YearIndex() map[string][]string {
	out := make(map[string][]string, len(g.years))
	for _, b := range g.years {
		out[strconv.Itoa(b.Year)] = urls(b.Posts)
	}
	return out
}

// TagIndex maps each tag to the URLs carrying it.
func (g *Graph) TagIndex() map[string][]string {
	out := make(map[string][]string, len(g.tags))
	for _, b := range g.tags {
		out[b.Tag] = urls(b.Posts)
	}
	return out
}

func urls(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.URL
	}
	return out
}

// Validate checks that every reference resolves to a post of the corpus.
func (g *Graph) Validate() error {
	check := func(where, url string) error {
		if url != "" && !g.corpus.Contains(url) {
			return fmt.Errorf("linkgraph: %s references unknown post %s", where, url)
		}
		return nil
	}
	for url, n := range g.chain {
		if err := check("chain", url); err != nil {
			return err
		}
		if err := check("chain prev of "+url, n.Prev); err != nil {
			return err
		}
		if err := check("chain next of "+url, n.Next); err != nil {
			return err
		}
	}
	for _, b := range g.years {
		for _, p := range b.Posts {
			if err := check("year "+strconv.Itoa(b.Year), p.URL); err != nil {
				return err
			}
		}
	}
	for _, b := range g.tags {
		for _, p := range b.Posts {
			if err := check("tag "+b.Tag, p.URL); err != nil {
				return err
			}
		}
	}
	return nil
}
