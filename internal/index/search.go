package index

import (
	"database/sql"
	"strings"
)

const defaultSearchLimit = 20

// SearchResult is one search hit.
type SearchResult struct {
	Path      string
	URL       string
	Title     string
	Published string
	Snippet   string
}

// searchTerms splits free text into terms, dropping double quotes so no
// term can break out of its quoting.
func searchTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(query) {
		if t := strings.ReplaceAll(f, `"`, ""); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.URL, &r.Title, &r.Published, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
