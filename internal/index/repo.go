package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/models"
)

// PostRow is one indexed post file.
type PostRow struct {
	Path      string
	URL       string
	Title     string
	Published models.Date
	Tags      []string
	Checksum  string
	UpdatedAt time.Time
}

// TagCount is a tag with the number of posts carrying it.
type TagCount struct {
	Tag   string
	Count int
}

// YearCount is a year with the number of posts published in it.
type YearCount struct {
	Year  int
	Count int
}

// ListQuery selects a page of posts. Zero Tag and Year match everything.
type ListQuery struct {
	Limit  int
	Offset int
	Tag    string
	Year   int
	// Newest orders by descending date instead of the book order.
	Newest bool
}

// UpsertPost inserts or replaces a post and its tags in one transaction.
func (db *DB) UpsertPost(p PostRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)

	_, err = tx.Exec(`
		INSERT INTO posts (path, url, title, published, year, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			url        = excluded.url,
			title      = excluded.title,
			published  = excluded.published,
			year       = excluded.year,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, p.Path, p.URL, p.Title, p.Published.String(), p.Published.Year(), p.Checksum, string(tagsJSON), body, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM post_tags WHERE path = ?`, p.Path); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	if len(tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO post_tags (path, tag) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range tags {
			if _, err := stmt.Exec(p.Path, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePost removes a post; its tags go with it. Deleting a path that is
// not indexed is not an error.
func (db *DB) DeletePost(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM posts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete post: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a post file, or "" if it is
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums maps every indexed path to its checksum.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

const postColumns = `path, url, title, published, checksum, tags, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner, extra ...any) (PostRow, error) {
	var (
		r         PostRow
		published string
		tagsJSON  string
	)
	dest := append([]any{&r.Path, &r.URL, &r.Title, &published, &r.Checksum, &tagsJSON, &r.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return PostRow{}, err
	}
	d, err := models.ParseDate(published)
	if err != nil {
		return PostRow{}, fmt.Errorf("index: row %s: %w", r.Path, err)
	}
	r.Published = d
	if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
		return PostRow{}, fmt.Errorf("index: row %s tags: %w", r.Path, err)
	}
	return r, nil
}

// GetPost returns the row and Markdown body stored for path.
func (db *DB) GetPost(path string) (*PostRow, string, error) {
	var body string
	row := db.conn.QueryRow(`SELECT `+postColumns+`, body FROM posts WHERE path = ?`, path)
	r, err := scanPost(row, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", apperr.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("index: get post: %w", err)
	}
	return &r, body, nil
}

// PathByURL returns the post file holding url. When several files carry
// the same URL the last one in path order wins, as when loading a corpus.
func (db *DB) PathByURL(url string) (string, error) {
	var p string
	err := db.conn.QueryRow(`SELECT path FROM posts WHERE url = ? ORDER BY path DESC LIMIT 1`, url).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("index: path by url: %w", err)
	}
	return p, nil
}

// ListPosts returns one page of posts plus the total number matching q.
func (db *DB) ListPosts(q ListQuery) ([]PostRow, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	var (
		conds []string
		args  []any
	)
	if q.Tag != "" {
		conds = append(conds, `path IN (SELECT path FROM post_tags WHERE tag = ?)`)
		args = append(args, q.Tag)
	}
	if q.Year != 0 {
		conds = append(conds, `year = ?`)
		args = append(args, q.Year)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count posts: %w", err)
	}

	order := " ORDER BY published, url"
	if q.Newest {
		order = " ORDER BY published DESC, url DESC"
	}
	rows, err := db.conn.Query(`SELECT `+postColumns+` FROM posts`+where+order+` LIMIT ? OFFSET ?`,
		append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		r, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Tags returns every tag with its post count, sorted by tag.
func (db *DB) Tags() ([]TagCount, error) {
	rows, err := db.conn.Query(`SELECT tag, count(*) FROM post_tags GROUP BY tag ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()
	var out []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// Years returns every year with posts, ascending.
func (db *DB) Years() ([]YearCount, error) {
	rows, err := db.conn.Query(`SELECT year, count(*) FROM posts GROUP BY year ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("index: years: %w", err)
	}
	defer rows.Close()
	var out []YearCount
	for rows.Next() {
		var yc YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, err
		}
		out = append(out, yc)
	}
	return out, rows.Err()
}
