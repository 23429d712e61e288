package config

import (
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration file when it changes on disk and hands
// each valid reload to the callback. Changes to the watch list take effect on
// the next daemon start; the callback only sees settings that can be applied
// live.
type Watcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	onReload func(*Config)
	logger   *slog.Logger
	current  *Config

	done    chan struct{}
	mu      sync.Mutex
	running bool
}

func NewWatcher(filePath string, current *Config, onReload func(*Config), logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  watcher,
		filePath: filePath,
		onReload: onReload,
		logger:   logger,
		current:  current,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the config file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory containing the file (more reliable for writes).
	dir := filepath.Dir(w.filePath)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}

	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	filename := filepath.Base(w.filePath)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.filePath)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous settings", "error", err)
		return
	}

	if !slices.Equal(cfg.Watch, w.current.Watch) {
		w.logger.Info("watch list changed on disk, restart required to apply", "watch", cfg.Watch)
	}
	if cfg.ListenPort != w.current.ListenPort {
		w.logger.Info("listen_port changed on disk, restart required to apply", "listen_port", cfg.ListenPort)
	}

	w.logger.Info("config reloaded",
		"log_level", cfg.LogLevel, "poll_interval_ms", cfg.PollIntervalMs)
	w.current = cfg
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.done)
	return w.watcher.Close()
}
