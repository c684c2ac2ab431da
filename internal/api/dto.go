package api

import (
	"github.com/starford/ljbook/internal/postservice"
)

// PostDetail is the full post response type (aliased from the domain layer).
type PostDetail = postservice.PostDetail

// PostListItem is a lightweight item in a list response (aliased from the domain layer).
type PostListItem = postservice.PostListItem

// PostListResponse wraps paginated post listings.
type PostListResponse struct {
	Posts []PostListItem `json:"posts" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"2014-03-05_12345-Hello.md" validate:"required"`
	URL     string `json:"url" example:"https://example.livejournal.com/12345.html" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Date    string `json:"date" example:"2014-03-05" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// TagCount is a tag with its post count.
type TagCount struct {
	Tag   string `json:"tag" example:"travel" validate:"required"`
	Count int    `json:"count" example:"7" validate:"required"`
}

// TagsResponse wraps the tag list.
type TagsResponse struct {
	Tags []TagCount `json:"tags" validate:"required"`
}

// YearCount is a year with its post count.
type YearCount struct {
	Year  int `json:"year" example:"2014" validate:"required"`
	Count int `json:"count" example:"120" validate:"required"`
}

// YearsResponse wraps the year list.
type YearsResponse struct {
	Years []YearCount `json:"years" validate:"required"`
}

// BookResponse describes a book written by POST /books.
type BookResponse struct {
	Path  string `json:"path" example:"example_posts_2014.epub" validate:"required"`
	Scope string `json:"scope" example:"2014" validate:"required"`
	Posts int    `json:"posts" example:"120" validate:"required"`
	Tags  int    `json:"tags" example:"15" validate:"required"`
	Size  int    `json:"size" example:"345678" validate:"required"`
}
