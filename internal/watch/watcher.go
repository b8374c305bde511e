// Package watch regenerates derived content when Markdown files change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/storage"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 2 * time.Second

// Func is invoked once per quiet period after relevant changes.
type Func func(ctx context.Context) error

// Watcher observes the content root of a storage provider.
type Watcher struct {
	store    storage.Provider
	debounce time.Duration
	logger   *slog.Logger
}

// New creates a watcher. A non-positive debounce selects DefaultDebounce.
func New(store storage.Provider, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{store: store, debounce: debounce, logger: logger}
}

// Run watches until ctx is cancelled. Changes to .md files that the store
// does not ignore arm a timer; when no further change arrives for the
// debounce period fn is called once. Errors from fn are logged and
// watching continues.
//
// Directories created at runtime are added to the watch list. Ignored
// directories (the generated output, hidden dirs) are never watched.
func (w *Watcher) Run(ctx context.Context, fn Func) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := w.store.Root()
	if err := w.addDirs(fw, root); err != nil {
		return err
	}
	w.logger.Info("watch: started", slog.String("root", root), slog.Duration("debounce", w.debounce))

	var timer *time.Timer
	var fire <-chan time.Time
	pending := 0

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watch: stopped")
			return nil

		case <-fire:
			fire = nil
			w.logger.Debug("watch: quiet period elapsed", slog.Int("changes", pending))
			pending = 0
			if err := fn(ctx); err != nil {
				w.logger.Error("watch: regenerate failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if w.store.Ignored(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.addDirs(fw, ev.Name); addErr != nil {
						w.logger.Warn("watch: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					}
					// Files may already exist inside a directory moved in.
					rel += "/"
				}
			}
			// A directory moved or deleted as a whole only reports its own
			// path, which is gone by now and cannot be checked for .md files.
			gone := ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0
			if !gone && !strings.HasSuffix(rel, ".md") && !strings.HasSuffix(rel, "/") {
				continue
			}

			w.logger.Debug("watch: change", slog.String("path", rel), slog.String("op", ev.Op.String()))
			pending++
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirs adds dir and every non-ignored subdirectory to fw.
func (w *Watcher) addDirs(fw *fsnotify.Watcher, dir string) error {
	root := w.store.Root()
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, p); relErr == nil && w.store.Ignored(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}
