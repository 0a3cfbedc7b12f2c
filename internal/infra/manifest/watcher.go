package manifest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the manifest when its file changes, with debounce, and
// hands the fresh catalog to the update callback. A manifest that fails to
// load keeps the previous catalog in place.
type Watcher struct {
	path     string
	loader   *Loader
	onUpdate func(Catalog)
	logger   *zap.Logger
}

func NewWatcher(path string, loader *Loader, onUpdate func(Catalog), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		loader:   loader,
		onUpdate: onUpdate,
		logger:   logger.Named("manifest_watcher"),
	}
}

// Run blocks until the context is canceled. Watching the directory rather
// than the file survives editors that replace the file on save.
func (w *Watcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("manifest watcher failed", zap.Error(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("manifest watcher add failed", zap.String("path", w.path), zap.Error(err))
		return
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-watcher.Errors:
			if err != nil {
				w.logger.Warn("manifest watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(reloadDebounce)
		case <-timerChan(timer):
			timer = nil
			catalog, err := w.loader.Load(ctx, w.path)
			if err != nil {
				w.logger.Warn("manifest reload failed, keeping previous catalog", zap.Error(err))
				continue
			}
			w.logger.Info("manifest reloaded", zap.Int("tools", len(catalog.Order)))
			if w.onUpdate != nil {
				w.onUpdate(catalog)
			}
		}
	}
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
