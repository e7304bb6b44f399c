package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the credentials file into a Pool when it changes on disk.
// Events are debounced so editors that write in multiple steps trigger a
// single reload.
type Watcher struct {
	path     string
	pool     *Pool
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the given credentials file.
func NewWatcher(path string, pool *Pool, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		pool:     pool,
		debounce: 250 * time.Millisecond,
		logger:   logger,
	}
}

// Watch blocks until the context is cancelled, reloading the pool whenever
// the credentials file is written or replaced. A reload that fails to parse
// leaves the current pool untouched.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file: most editors replace files
	// by rename, which drops a direct file watch.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("watching credentials file", "path", w.path)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn("credentials watcher error", "error", err)
		}
	}
}

// reload re-reads the file and reconciles the pool.
func (w *Watcher) reload() {
	creds, err := LoadFile(w.path)
	if err != nil {
		w.logger.Error("credentials reload failed, keeping current pool",
			"path", w.path,
			"error", err,
		)
		return
	}
	w.pool.Reconcile(creds)
}
