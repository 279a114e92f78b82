package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// Live holds the current config and swaps it when vontta.yml changes on disk.
type Live struct {
	current   atomic.Pointer[Config]
	workspace string
	logger    *slog.Logger

	mu        sync.Mutex
	listeners []func(*Config)
}

func NewLive(workspace string, initial *Config, logger *slog.Logger) *Live {
	if initial == nil {
		initial = Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	l := &Live{workspace: workspace, logger: logger}
	l.current.Store(initial)
	return l
}

// Get returns the active config. Callers must not modify it.
func (l *Live) Get() *Config {
	return l.current.Load()
}

// OnChange registers fn to run after every successful reload.
func (l *Live) OnChange(fn func(*Config)) {
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	l.mu.Unlock()
}

// Reload reads the file now. A missing or invalid file keeps the previous
// config and returns the error.
func (l *Live) Reload() error {
	cfg, err := Load(l.workspace)
	if err != nil {
		return err
	}
	l.Set(cfg)
	return nil
}

// Set replaces the active config and notifies listeners.
func (l *Live) Set(cfg *Config) {
	l.current.Store(cfg)
	l.mu.Lock()
	listeners := append([]func(*Config){}, l.listeners...)
	l.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// Watch reloads on writes to the config file until ctx is done. The
// directory is watched rather than the file so editors that replace the file
// are still seen.
func (l *Live) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer w.Close()
	target := filepath.Clean(Path(l.workspace))
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	reload := func() {
		if err := l.Reload(); err != nil {
			l.logger.Warn("config reload failed; keeping previous settings", "path", target, "error", err)
			return
		}
		l.logger.Info("config reloaded", "path", target)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, reload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("config watcher error", "error", err)
		}
	}
}
