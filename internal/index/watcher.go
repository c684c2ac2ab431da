package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ljbook/internal/postfile"
	"github.com/starford/ljbook/internal/storage"
)

// ChangeKind names an index mutation made by the watcher.
type ChangeKind string

const (
	Created ChangeKind = "created"
	Updated ChangeKind = "updated"
	Deleted ChangeKind = "deleted"
)

// ChangeFunc is called after a watcher-driven index change.
type ChangeFunc func(kind ChangeKind, path string)

const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     ChangeFunc
}

func (w *watcher) notify(kind ChangeKind, path string) {
	if w.cb != nil {
		w.cb(kind, path)
	}
}

// Watch follows the post directory with fsnotify and keeps the index in
// step until ctx is cancelled. Rewrites with identical content are ignored.
// Renames delete the old entry and schedule a reconciliation pass.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb ChangeFunc) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}

	w := &watcher{db: db, store: store, root: root, logger: logger, cb: cb}
	logger.Info("watcher: started", slog.String("root", root))

	var (
		reconcileTimer *time.Timer
		reconcileCh    <-chan time.Time
	)
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
			return
		}
		reconcileTimer.Reset(reconcileDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, ev, scheduleReconcile)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event, scheduleReconcile func()) {
	abs := ev.Name

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			if err := addDirsRecursive(fw, abs); err != nil {
				w.logger.Warn("watcher: add new dir failed", slog.String("path", abs), slog.String("error", err.Error()))
			}
			w.indexDir(abs)
			return
		}
	}

	if !strings.HasSuffix(abs, postfile.Ext) {
		return
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := Updated
		if ev.Op&fsnotify.Create != 0 {
			kind = Created
		}
		w.index(rel, kind)

	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if err := w.db.DeletePost(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			w.logger.Debug("watcher: deleted", slog.String("path", rel))
			w.notify(Deleted, rel)
		}
		// The new name of a renamed file arrives as its own Create event;
		// the pass catches moves out of watched directories.
		if ev.Op&fsnotify.Rename != 0 {
			scheduleReconcile()
		}
	}
}

func (w *watcher) index(rel string, kind ChangeKind) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if unchanged(w.db, rel, data) {
		return
	}
	if err := indexFile(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", string(kind)))
	w.notify(kind, rel)
}

// reconcile removes index entries whose files are gone and indexes files
// the index has not seen.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("", postfile.Ext)
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := w.db.DeletePost(p); err == nil {
			w.logger.Debug("reconcile: removed stale", slog.String("path", p))
			w.notify(Deleted, p)
		}
	}

	for p, cs := range disk {
		old, known := checksums[p]
		if known && old == cs {
			continue
		}
		data, err := w.store.Read(p)
		if err != nil {
			continue
		}
		if err := indexFile(w.db, p, data); err != nil {
			continue
		}
		kind := Created
		if known {
			kind = Updated
		}
		w.logger.Debug("reconcile: indexed", slog.String("path", p))
		w.notify(kind, p)
	}
}

// indexDir indexes the post files already present in a new directory.
func (w *watcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, postfile.Ext) {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		w.index(filepath.ToSlash(rel), Created)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
