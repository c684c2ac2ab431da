// Package corpus holds the accepted posts of a run, keyed by URL and ordered
// by publication date.
package corpus

import (
	"iter"
	"slices"

	"github.com/starford/ljbook/internal/models"
)

// Builder collects posts. Adding a URL twice keeps the last version.
type Builder struct {
	posts map[string]models.Post
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{posts: make(map[string]models.Post)}
}

// Add stores p and reports whether it replaced an earlier post with the same URL.
func (b *Builder) Add(p models.Post) bool {
	_, replaced := b.posts[p.URL]
	b.posts[p.URL] = p
	return replaced
}

// Len returns the number of distinct posts collected so far.
func (b *Builder) Len() int { return len(b.posts) }

// Build freezes the collected posts into a Corpus. The Builder may keep
// being used; the returned Corpus does not observe later additions.
func (b *Builder) Build() *Corpus {
	posts := make([]models.Post, 0, len(b.posts))
	for _, p := range b.posts {
		posts = append(posts, p)
	}
	return fromSorted(sortPosts(posts))
}

// Corpus is an immutable, ordered set of posts: ascending publication date,
// ties broken by URL. Posts handed out are copies.
type Corpus struct {
	posts []models.Post
	index map[string]int
}

// New builds a Corpus from posts; later duplicates of a URL win.
func New(posts ...models.Post) *Corpus {
	b := NewBuilder()
	for _, p := range posts {
		b.Add(p)
	}
	return b.Build()
}

func sortPosts(posts []models.Post) []models.Post {
	slices.SortFunc(posts, models.Compare)
	return posts
}

func fromSorted(posts []models.Post) *Corpus {
	idx := make(map[string]int, len(posts))
	for i, p := range posts {
		idx[p.URL] = i
	}
	return &Corpus{posts: posts, index: idx}
}

// Len returns the number of posts.
func (c *Corpus) Len() int { return len(c.posts) }

// Empty reports whether the corpus has no posts.
func (c *Corpus) Empty() bool { return len(c.posts) == 0 }

// At returns the i-th post in corpus order.
func (c *Corpus) At(i int) models.Post { return c.posts[i].Clone() }

// Posts returns a copy of the ordered posts.
func (c *Corpus) Posts() []models.Post { return ClonePosts(c.posts) }

// ClonePosts deep-copies posts.
func ClonePosts(posts []models.Post) []models.Post {
	if posts == nil {
		return nil
	}
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		out[i] = p.Clone()
	}
	return out
}

// All iterates posts in corpus order.
func (c *Corpus) All() iter.Seq2[int, models.Post] {
	return func(yield func(int, models.Post) bool) {
		for i, p := range c.posts {
			if !yield(i, p.Clone()) {
				return
			}
		}
	}
}

// Get returns the post with the given URL.
func (c *Corpus) Get(url string) (models.Post, bool) {
	i, ok := c.index[url]
	if !ok {
		return models.Post{}, false
	}
	return c.posts[i].Clone(), true
}

// Contains reports whether a post with url is present.
func (c *Corpus) Contains(url string) bool {
	_, ok := c.index[url]
	return ok
}

// Position returns the corpus index of url, or -1.
func (c *Corpus) Position(url string) int {
	if i, ok := c.index[url]; ok {
		return i
	}
	return -1
}

// Years returns the distinct publication years in ascending order.
func (c *Corpus) Years() []int {
	var years []int
	for _, p := range c.posts {
		if n := len(years); n == 0 || years[n-1] != p.Year() {
			years = append(years, p.Year())
		}
	}
	return years
}

// Year returns a new Corpus holding only the posts published in year.
func (c *Corpus) Year(year int) *Corpus {
	var posts []models.Post
	for _, p := range c.posts {
		if p.Year() == year {
			posts = append(posts, p)
		}
	}
	return fromSorted(posts)
}

// Range returns the first and last publication dates, zero when empty.
func (c *Corpus) Range() (first, last models.Date) {
	if len(c.posts) == 0 {
		return models.Date{}, models.Date{}
	}
	return c.posts[0].PublishedAt, c.posts[len(c.posts)-1].PublishedAt
}
