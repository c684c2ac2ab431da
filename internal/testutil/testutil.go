// Package testutil provides shared test helpers for setting up post
// directories and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/ljbook/internal/index"
	"github.com/starford/ljbook/internal/models"
	"github.com/starford/ljbook/internal/postfile"
	"github.com/starford/ljbook/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ljbook-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPosts creates a temporary post directory with a storage.Provider.
func TestPosts(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WritePost stores p under its canonical file name and returns that name.
func WritePost(t *testing.T, store storage.Provider, p models.Post) string {
	t.Helper()
	data, err := postfile.Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	name := postfile.FileName(p)
	if err := store.Write(name, data); err != nil {
		t.Fatal(err)
	}
	return name
}
