package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the backing registry file whenever it changes on disk.
// It blocks until ctx is cancelled. Only meaningful in dev mode; the
// mtime guard in ReloadIfDev still applies, so redundant events are cheap.
func (r *Registry) Watch(ctx context.Context) error {
	if !r.dev || r.path == "" {
		return fmt.Errorf("watch requires a file-backed registry in dev mode")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close() // Best-effort cleanup
	}()

	// Watch the directory: editors often replace the file, which drops
	// a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		return fmt.Errorf("watching registry dir: %w", err)
	}

	target := filepath.Clean(r.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			reloaded, err := r.ReloadIfDev()
			if err != nil {
				slog.Error("registry reload failed", "path", r.path, "error", err)
				continue
			}
			if reloaded {
				slog.Debug("registry reloaded", "path", r.path)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("registry watch error", "error", err)
		}
	}
}
