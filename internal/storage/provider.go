// Package storage defines the file-system abstraction for post files and books.
package storage

import (
	"io"

	"github.com/starford/ljbook/internal/models"
)

// Provider is the interface for file operations relative to a root directory.
// Paths are slash-separated and must stay inside the root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns metadata for every file under dir whose name ends with ext,
	// sorted by path.
	List(dir, ext string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces path with content, creating parent directories.
	Write(path string, content []byte) error
	// WriteStream atomically replaces path with whatever fill writes and
	// returns the number of bytes written. Nothing is published if fill fails.
	WriteStream(path string, fill func(w io.Writer) error) (int64, error)
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
}
