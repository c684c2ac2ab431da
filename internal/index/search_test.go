//go:build !sqlite_fts5

package index

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/ljbook/internal/models"
)

func TestSearch_AllTermsRequired(t *testing.T) {
	db := testDB(t)
	d := models.NewDate(2014, time.May, 1)
	_ = db.UpsertPost(row("a.md", "a", d), "walked along the river")
	_ = db.UpsertPost(row("b.md", "b", d), "walked to the station")

	results, err := db.Search("walked river", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "a.md" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearch_WildcardsAreLiteral(t *testing.T) {
	db := testDB(t)
	d := models.NewDate(2014, time.May, 1)
	_ = db.UpsertPost(row("pct.md", "p", d), "prices rose by 50% this year")
	_ = db.UpsertPost(row("plain.md", "q", d), "prices rose by 500 roubles")

	results, _ := db.Search("50%", 10)
	if len(results) != 1 || results[0].Path != "pct.md" {
		t.Errorf("results = %+v", results)
	}
	if results, _ := db.Search("_", 10); len(results) != 0 {
		t.Errorf("underscore matched %+v", results)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	db := testDB(t)
	results, err := db.Search(`  "" `, 10)
	if err != nil || results != nil {
		t.Errorf("Search = %v, %v", results, err)
	}
}

func TestSnippet(t *testing.T) {
	body := strings.Repeat("a", 300) + " Needle " + strings.Repeat("b", 300)

	got := snippet(body, "needle")
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("snippet not elided: %q", got)
	}
	if !strings.Contains(got, "Needle") {
		t.Errorf("snippet lacks term: %q", got)
	}
	if short := snippet("Короткий текст", "текст"); short != "Короткий текст" {
		t.Errorf("short snippet = %q", short)
	}
	if miss := snippet("title only match", "zzz"); miss != "title only match" {
		t.Errorf("miss = %q", miss)
	}
}
