// Package watch re-runs a callback when a single file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the bursts of events editors emit on save.
const DefaultDebounce = 500 * time.Millisecond

// FileWatcher calls a function after the watched file is written.
type FileWatcher struct {
	path     string
	debounce time.Duration
	logger   *zap.Logger
}

// New creates a watcher for path. debounce <= 0 selects DefaultDebounce.
func New(path string, debounce time.Duration, logger *zap.Logger) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &FileWatcher{path: abs, debounce: debounce, logger: logger}, nil
}

// Run blocks until ctx is done, calling onChange once per debounced burst of
// writes to the file. The parent directory is watched so that atomic
// rename-on-save is seen as a change. Errors from onChange are logged.
func (w *FileWatcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("Watching dataset", zap.String("path", w.path))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		case <-timer.C:
			w.logger.Info("Dataset changed, reloading", zap.String("path", w.path))
			if err := onChange(ctx); err != nil {
				w.logger.Error("Reload failed", zap.Error(err))
			}
		}
	}
}

func (w *FileWatcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
