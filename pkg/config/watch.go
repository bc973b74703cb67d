package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a config file so detection and recommendation tuning
// can change without restarting the instrumented process.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	onLoad  func(*Config)
}

// NewWatcher creates a file watcher for the given config path. onLoad is
// invoked with each successfully reloaded config.
func NewWatcher(path string, onLoad func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config.NewWatcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config.NewWatcher: watch %q: %w", path, err)
	}
	return &Watcher{watcher: watcher, path: path, onLoad: onLoad}, nil
}

// Run watches for file changes and reloads config. Blocks until ctx is
// cancelled. Writes are debounced so editors that write in bursts trigger a
// single reload; a reload that fails validation is logged and skipped,
// keeping the previous config in effect.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					cfg, err := Load(w.path)
					if err != nil {
						slog.Error("config hot-reload failed", "path", w.path, "error", err)
						return
					}
					slog.Info("config hot-reloaded", "path", w.path)
					w.onLoad(cfg)
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config watcher error", "path", w.path, "error", err)
		}
	}
}
