package corpus

import (
	"fmt"
	"log/slog"

	"github.com/starford/ljbook/internal/postfile"
	"github.com/starford/ljbook/internal/storage"
)

// LoadStats counts what Load saw.
type LoadStats struct {
	Files      int
	Loaded     int
	Invalid    int
	Duplicates int
}

// Load reads every post file under dir. Files that do not decode are
// skipped and logged; when two files carry the same URL the later one in
// path order wins.
func Load(store storage.Provider, dir string, logger *slog.Logger) (*Corpus, LoadStats, error) {
	var stats LoadStats

	metas, err := store.List(dir, postfile.Ext)
	if err != nil {
		return nil, stats, fmt.Errorf("corpus: list %s: %w", dir, err)
	}

	b := NewBuilder()
	for _, m := range metas {
		stats.Files++
		data, err := store.Read(m.Path)
		if err != nil {
			return nil, stats, fmt.Errorf("corpus: %w", err)
		}
		p, err := postfile.Decode(m.Path, data)
		if err != nil {
			stats.Invalid++
			logger.Warn("corpus: skipping post file", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if b.Add(p) {
			stats.Duplicates++
			logger.Debug("corpus: duplicate url, keeping later file", slog.String("url", p.URL), slog.String("path", m.Path))
		}
	}

	c := b.Build()
	stats.Loaded = c.Len()
	return c, stats, nil
}
