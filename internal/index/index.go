package index

// PostIndex is the read/write surface of the post catalogue.
type PostIndex interface {
	UpsertPost(p PostRow, body string) error
	DeletePost(path string) error
	GetChecksum(path string) (string, error)
	GetPost(path string) (*PostRow, string, error)
	PathByURL(url string) (string, error)
	ListPosts(q ListQuery) ([]PostRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Tags() ([]TagCount, error)
	Years() ([]YearCount, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ PostIndex = (*DB)(nil)
