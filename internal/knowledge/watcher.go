package knowledge

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gauntlet-run/gauntlet/internal/logging"
)

// reloadDebounce coalesces the bursts of write events editors produce.
const reloadDebounce = 500 * time.Millisecond

// Watch reloads the base whenever its backing file changes, until ctx is
// cancelled. The parent directory is watched so editors that replace the
// file via rename are still caught.
func (b *Base) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(b.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(b.path), err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(b.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					if err := b.Reload(); err != nil {
						logging.Warn("knowledge base reload failed: %v", err)
						return
					}
					logging.Info("knowledge base reloaded from %s", b.path)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn("knowledge watcher: %v", err)
			}
		}
	}()

	return nil
}
