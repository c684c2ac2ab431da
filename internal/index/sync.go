package index

import (
	"log/slog"
	"time"

	"github.com/starford/ljbook/internal/checksum"
	"github.com/starford/ljbook/internal/postfile"
	"github.com/starford/ljbook/internal/storage"
)

// SyncStats counts what Sync did.
type SyncStats struct {
	Indexed   int
	Unchanged int
	Invalid   int
	Removed   int
}

// Sync brings the index in line with the post files in store: changed files
// are decoded and upserted, files that are gone are removed. Files that do
// not decode are logged and left out of the index.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats

	metas, err := store.List("", postfile.Ext)
	if err != nil {
		return stats, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			stats.Unchanged++
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			stats.Invalid++
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", m.Path))
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeletePost(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	return stats, nil
}

// indexFile decodes a post file and upserts it.
func indexFile(db *DB, path string, data []byte) error {
	p, err := postfile.Decode(path, data)
	if err != nil {
		return err
	}
	return db.UpsertPost(PostRow{
		Path:      path,
		URL:       p.URL,
		Title:     p.Title,
		Published: p.PublishedAt,
		Tags:      p.Tags,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now().UTC(),
	}, p.Body)
}

// unchanged reports whether data is already indexed under path.
func unchanged(db *DB, path string, data []byte) bool {
	cs, err := db.GetChecksum(path)
	return err == nil && cs != "" && checksum.Matches(data, cs)
}
