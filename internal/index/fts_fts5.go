//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

// posts_fts is an external-content table over posts; triggers keep it in
// step with every insert, update and delete.
const ftsSchemaSQL = `
CREATE VIRTUAL TABLE posts_fts USING fts5(
	title, body, tags,
	content = 'posts',
	content_rowid = 'id',
	tokenize = 'unicode61 remove_diacritics 2'
);

CREATE TRIGGER posts_fts_ai AFTER INSERT ON posts BEGIN
	INSERT INTO posts_fts(rowid, title, body, tags) VALUES (new.id, new.title, new.body, new.tags);
END;

CREATE TRIGGER posts_fts_ad AFTER DELETE ON posts BEGIN
	INSERT INTO posts_fts(posts_fts, rowid, title, body, tags) VALUES ('delete', old.id, old.title, old.body, old.tags);
END;

CREATE TRIGGER posts_fts_au AFTER UPDATE ON posts BEGIN
	INSERT INTO posts_fts(posts_fts, rowid, title, body, tags) VALUES ('delete', old.id, old.title, old.body, old.tags);
	INSERT INTO posts_fts(rowid, title, body, tags) VALUES (new.id, new.title, new.body, new.tags);
END;
`

func initFTS(conn *sql.DB) error {
	var n int
	if err := conn.QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'posts_fts'`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := conn.Exec(ftsSchemaSQL); err != nil {
		return err
	}
	// Rows written by a build without FTS5.
	_, err := conn.Exec(`INSERT INTO posts_fts(posts_fts) VALUES ('rebuild')`)
	return err
}

func dropFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		DROP TRIGGER IF EXISTS posts_fts_ai;
		DROP TRIGGER IF EXISTS posts_fts_ad;
		DROP TRIGGER IF EXISTS posts_fts_au;
		DROP TABLE IF EXISTS posts_fts;
	`)
	return err
}

// matchExpr turns free text into an FTS5 query: every term must occur,
// each matched as a quoted prefix so punctuation is never parsed as syntax.
// Terms without a letter or digit produce no tokens and are dropped.
func matchExpr(query string) string {
	var parts []string
	for _, t := range searchTerms(query) {
		if strings.IndexFunc(t, isWordRune) < 0 {
			continue
		}
		parts = append(parts, `"`+t+`"*`)
	}
	return strings.Join(parts, " ")
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// Search runs an FTS5 query and returns ranked hits with body snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	expr := matchExpr(query)
	if expr == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(`
		SELECT p.path, p.url, p.title, p.published,
		       snippet(posts_fts, 1, '<b>', '</b>', '...', 32)
		FROM posts_fts
		JOIN posts p ON p.id = posts_fts.rowid
		WHERE posts_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, expr, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
