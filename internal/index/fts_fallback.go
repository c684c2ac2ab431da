//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

const snippetRunes = 200

func initFTS(*sql.DB) error { return nil }

func dropFTS(*sql.DB) error { return nil }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search requires every term to occur in the title, body or tags. SQLite's
// LIKE folds ASCII case only.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	terms := searchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	conds := make([]string, len(terms))
	args := make([]any, 0, 3*len(terms)+1)
	for i, t := range terms {
		conds[i] = `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`
		like := "%" + likeEscaper.Replace(t) + "%"
		args = append(args, like, like, like)
	}
	args = append(args, limit)

	rows, err := db.conn.Query(`
		SELECT path, url, title, published, body
		FROM posts
		WHERE `+strings.Join(conds, " AND ")+`
		ORDER BY published DESC, url DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	// Snippet holds the full body until it is cut down here.
	for i := range results {
		results[i].Snippet = snippet(results[i].Snippet, terms[0])
	}
	return results, nil
}

// snippet cuts a window of the body around the first occurrence of term,
// or its opening when the term only matched the title or tags.
func snippet(body, term string) string {
	text := []rune(body)
	at := max(runeIndexFold(text, []rune(term))-snippetRunes/4, 0)
	end := min(at+snippetRunes, len(text))
	out := string(text[at:end])
	if at > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// runeIndexFold is a case-insensitive rune search; -1 when absent.
func runeIndexFold(hay, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j, r := range needle {
			if unicode.ToLower(hay[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
