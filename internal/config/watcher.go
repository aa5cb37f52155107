package config

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ekisa-team/modelserve/internal/xfs"
)

// Watcher watches the config file and reloads it on change. Close stops the
// watch; the watcher is not restartable.
type Watcher struct {
	path       string
	schemaPath string
	onReload   func(*Config, error)

	current *Config
	mu      sync.RWMutex
	reloads atomic.Uint32

	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher loads the config once and starts watching it for changes.
func NewWatcher(path string, schemaPath string, onReload func(*Config, error)) (*Watcher, error) {
	w := &Watcher{
		path:       xfs.ExpandTilde(path),
		schemaPath: xfs.ExpandTilde(schemaPath),
		onReload:   onReload,
		done:       make(chan struct{}),
	}

	cfg, err := LoadAndValidate(w.path, w.schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}
	w.current = cfg

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config file %s: %w", w.path, err)
	}

	go w.watch(fsw)

	return w, nil
}

// Close stops watching the config file. Safe to call more than once.
func (cw *Watcher) Close() {
	cw.closeOnce.Do(func() { close(cw.done) })
}

// watch consumes file events until Close.
func (cw *Watcher) watch(fsw *fsnotify.Watcher) {
	defer fsw.Close()

	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-cw.done:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				// Editors that replace on save leave the watch on a dead
				// inode; re-adding follows the new file.
				if err := fsw.Add(cw.path); err != nil {
					slog.Error("Failed to re-watch config file", "path", cw.path, "error", err)
				}
				cw.reload()
			})

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}

			slog.Error("Watcher error", "error", err)
		}
	}
}

// reload reloads the config file.
func (cw *Watcher) reload() {
	select {
	case <-cw.done:
		return
	default:
	}

	count := cw.reloads.Add(1)
	slog.Info("Reloading config file", "path", cw.path, "count", count)

	cfg, err := LoadAndValidate(cw.path, cw.schemaPath)
	if err != nil {
		slog.Error("Failed to reload config", "error", err)
		cw.onReload(nil, err)
		return
	}

	cw.mu.Lock()
	cw.current = cfg
	cw.mu.Unlock()

	slog.Info("Config reloaded successfully", "count", count)
	cw.onReload(cfg, nil)
}

// Snapshot returns the current config snapshot (thread-safe).
func (cw *Watcher) Snapshot() *Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()

	return cw.current
}

// ReloadCount returns the number of times a reload has been attempted.
func (cw *Watcher) ReloadCount() uint32 {
	return cw.reloads.Load()
}
