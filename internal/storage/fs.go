package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/ljbook/internal/checksum"
	"github.com/starford/ljbook/internal/models"
)

// FS implements Provider on a local directory.
type FS struct {
	root string
}

// NewFS returns an FS rooted at an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// OpenFS is NewFS that first creates root and its parents.
func OpenFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return NewFS(root)
}

func (f *FS) Root() string { return f.root }

// resolve maps a relative path onto the file system, refusing absolute
// paths and anything that climbs out of the root.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	local := filepath.FromSlash(rel)
	if filepath.IsAbs(local) || !filepath.IsLocal(local) {
		return "", fmt.Errorf("storage: path outside root: %s", rel)
	}
	return filepath.Join(f.root, local), nil
}

// List walks dir and returns metadata for every file ending in ext.
// In-flight temp files are skipped; a missing dir lists as empty.
func (f *FS) List(dir, ext string) ([]models.FileMeta, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}

	var out []models.FileMeta
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == base && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if d.IsDir() || isTemp(d.Name()) || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		meta, err := f.describe(p, d)
		if err != nil {
			return err
		}
		out = append(out, meta)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	slices.SortFunc(out, func(a, b models.FileMeta) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

func (f *FS) describe(p string, d fs.DirEntry) (models.FileMeta, error) {
	info, err := d.Info()
	if err != nil {
		return models.FileMeta{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return models.FileMeta{}, err
	}
	rel, err := filepath.Rel(f.root, p)
	if err != nil {
		return models.FileMeta{}, err
	}
	return models.FileMeta{
		Path:      filepath.ToSlash(rel),
		Checksum:  checksum.Sum(data),
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

func (f *FS) Write(path string, content []byte) error {
	_, err := f.WriteStream(path, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
	return err
}

func (f *FS) WriteStream(path string, fill func(w io.Writer) error) (int64, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return 0, err
	}
	if abs == f.root {
		return 0, fmt.Errorf("storage: cannot write the root directory")
	}
	return replaceFile(abs, fill)
}

func (f *FS) Delete(path string) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

func (f *FS) Exists(path string) (bool, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}
