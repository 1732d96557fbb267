// Package watcher reloads the search index when the corpus file changes
// on disk. Events are debounced so that an editor or sync tool rewriting
// the file in several steps triggers a single reload.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default event coalescing window.
const DefaultDebounce = 500 * time.Millisecond

// ReloadFunc is invoked after the debounce window once the corpus file
// has changed. Errors are logged, not fatal; the previous index stays
// live.
type ReloadFunc func() error

// CorpusWatcher watches a single corpus file and triggers reloads.
type CorpusWatcher struct {
	path     string
	debounce time.Duration
	reload   ReloadFunc
	fsw      *fsnotify.Watcher
}

// New creates a watcher for the corpus file at path. debounce <= 0 uses
// the default window.
func New(path string, debounce time.Duration, reload ReloadFunc) (*CorpusWatcher, error) {
	if reload == nil {
		return nil, fmt.Errorf("reload callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	// Watch the directory, not the file: editors and atomic writers
	// replace the file via rename, which drops a direct file watch.
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &CorpusWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		reload:   reload,
		fsw:      fsw,
	}, nil
}

// Run processes file events until the context is cancelled. It blocks;
// run it in a goroutine.
func (w *CorpusWatcher) Run(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	slog.Info("corpus_watch_started", slog.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("corpus_file_event",
				slog.String("op", event.Op.String()),
				slog.String("path", event.Name))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			start := time.Now()
			if err := w.reload(); err != nil {
				slog.Error("corpus_reload_failed",
					slog.String("path", w.path),
					slog.String("error", err.Error()))
				continue
			}
			slog.Info("corpus_reload_triggered",
				slog.String("path", w.path),
				slog.Duration("duration", time.Since(start)))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("corpus_watch_error", slog.String("error", err.Error()))
		}
	}
}

// relevant reports whether the event concerns the corpus file and is a
// content-changing operation.
func (w *CorpusWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Rename)
}

// Close stops watching and releases resources.
func (w *CorpusWatcher) Close() error {
	return w.fsw.Close()
}
