package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/ljbook/internal/apperr"
	"github.com/starford/ljbook/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ljbook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func row(path, url string, d models.Date, tags ...string) PostRow {
	return PostRow{
		Path:      path,
		URL:       url,
		Title:     "Post " + path,
		Published: d,
		Tags:      tags,
		Checksum:  "cs-" + path,
		UpdatedAt: time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`).Scan(&count); err != nil {
		t.Fatalf("posts table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM post_tags`).Scan(&count); err != nil {
		t.Fatalf("post_tags table missing: %v", err)
	}
}

func TestUpsertAndGetPost(t *testing.T) {
	db := testDB(t)
	d := models.NewDate(2014, time.March, 5)
	if err := db.UpsertPost(row("a.md", "https://x.livejournal.com/1.html", d, "go", "travel"), "Hello body."); err != nil {
		t.Fatalf("UpsertPost: %v", err)
	}

	got, body, err := db.GetPost("a.md")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.URL != "https://x.livejournal.com/1.html" {
		t.Errorf("url = %q", got.URL)
	}
	if got.Published != d {
		t.Errorf("published = %s, want %s", got.Published, d)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "travel" {
		t.Errorf("tags = %v", got.Tags)
	}
	if body != "Hello body." {
		t.Errorf("body = %q", body)
	}

	cs, err := db.GetChecksum("a.md")
	if err != nil || cs != "cs-a.md" {
		t.Errorf("checksum = %q, %v", cs, err)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	db := testDB(t)
	_, _, err := db.GetPost("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertReplacesTags(t *testing.T) {
	db := testDB(t)
	d := models.NewDate(2014, time.March, 5)
	_ = db.UpsertPost(row("a.md", "u1", d, "old"), "body")
	_ = db.UpsertPost(row("a.md", "u1", d, "new"), "body")

	tags, err := db.Tags()
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Tag != "new" || tags[0].Count != 1 {
		t.Errorf("tags = %+v", tags)
	}
}

func TestDeletePost(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPost(row("del.md", "u", models.NewDate(2015, time.May, 1), "t"), "body")

	if err := db.DeletePost("del.md"); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted post still has checksum %q", cs)
	}
	tags, _ := db.Tags()
	if len(tags) != 0 {
		t.Errorf("tags left after delete: %+v", tags)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListPosts(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPost(row("c.md", "u3", models.NewDate(2015, time.January, 2), "a"), "")
	_ = db.UpsertPost(row("a.md", "u1", models.NewDate(2014, time.January, 2), "a", "b"), "")
	_ = db.UpsertPost(row("b.md", "u2", models.NewDate(2014, time.June, 9), "b"), "")

	all, total, err := db.ListPosts(ListQuery{})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("total = %d, len = %d", total, len(all))
	}
	if all[0].Path != "a.md" || all[2].Path != "c.md" {
		t.Errorf("order = %s, %s, %s", all[0].Path, all[1].Path, all[2].Path)
	}

	newest, _, _ := db.ListPosts(ListQuery{Newest: true, Limit: 1})
	if len(newest) != 1 || newest[0].Path != "c.md" {
		t.Errorf("newest = %+v", newest)
	}

	tagged, total, _ := db.ListPosts(ListQuery{Tag: "b"})
	if total != 2 || len(tagged) != 2 {
		t.Errorf("tag b: total = %d, len = %d", total, len(tagged))
	}

	year, total, _ := db.ListPosts(ListQuery{Year: 2014, Offset: 1})
	if total != 2 || len(year) != 1 || year[0].Path != "b.md" {
		t.Errorf("year 2014 offset 1: total = %d, rows = %+v", total, year)
	}
}

func TestTagsAndYears(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPost(row("a.md", "u1", models.NewDate(2014, time.January, 2), "x", "y"), "")
	_ = db.UpsertPost(row("b.md", "u2", models.NewDate(2016, time.June, 9), "x"), "")

	tags, err := db.Tags()
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 2 || tags[0] != (TagCount{Tag: "x", Count: 2}) || tags[1] != (TagCount{Tag: "y", Count: 1}) {
		t.Errorf("tags = %+v", tags)
	}

	years, err := db.Years()
	if err != nil {
		t.Fatalf("Years: %v", err)
	}
	if len(years) != 2 || years[0] != (YearCount{Year: 2014, Count: 1}) || years[1] != (YearCount{Year: 2016, Count: 1}) {
		t.Errorf("years = %+v", years)
	}
}

func TestPathByURL(t *testing.T) {
	db := testDB(t)
	d := models.NewDate(2014, time.January, 2)
	_ = db.UpsertPost(row("2014-01-02_1-a.md", "https://x.livejournal.com/1.html", d), "")
	_ = db.UpsertPost(row("2014-01-02_1-b.md", "https://x.livejournal.com/1.html", d), "")

	p, err := db.PathByURL("https://x.livejournal.com/1.html")
	if err != nil {
		t.Fatalf("PathByURL: %v", err)
	}
	if p != "2014-01-02_1-b.md" {
		t.Errorf("path = %q", p)
	}
	if _, err := db.PathByURL("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPost(row("s.md", "u", models.NewDate(2014, time.January, 2)), "uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Fatalf("search results = %+v, want 1 hit for s.md", results)
	}
	if results[0].URL != "u" || results[0].Published != "2014-01-02" {
		t.Errorf("result = %+v", results[0])
	}
}

func TestOpen_RebuildsOutdatedSchema(t *testing.T) {
	f, err := os.CreateTemp("", "ljbook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = db.UpsertPost(row("old.md", "u", models.NewDate(2014, time.May, 1)), "body")
	if _, err := db.conn.Exec(`PRAGMA user_version = 1`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(f.Name())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	sums, err := db.AllChecksums()
	if err != nil || len(sums) != 0 {
		t.Errorf("outdated rows kept: %v, %v", sums, err)
	}
	var v int
	_ = db.conn.QueryRow(`PRAGMA user_version`).Scan(&v)
	if v != schemaVersion {
		t.Errorf("user_version = %d, want %d", v, schemaVersion)
	}
}

func TestOpen_KeepsCurrentSchema(t *testing.T) {
	f, err := os.CreateTemp("", "ljbook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = db.UpsertPost(row("kept.md", "u", models.NewDate(2014, time.May, 1)), "body")
	db.Close()

	db, err = Open(f.Name())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if cs, _ := db.GetChecksum("kept.md"); cs != "cs-kept.md" {
		t.Errorf("checksum = %q", cs)
	}
}
