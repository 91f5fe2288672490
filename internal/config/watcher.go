// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the configuration file when it changes and notifies
// registered callbacks with the freshly validated configuration. A reload
// that fails validation is logged and dropped; callbacks only ever see good
// configurations.
type Watcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	logger     zerolog.Logger
	callbacks  []func(*Config)
	mu         sync.RWMutex
	stopped    bool
}

// NewWatcher starts watching configPath.
func NewWatcher(configPath string, logger zerolog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:    watcher,
		configPath: configPath,
		logger:     logger,
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	go w.run()
	return w, nil
}

// OnChange registers a callback invoked with each successfully reloaded
// configuration.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFromFile(w.configPath)
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.configPath).Msg("config reload failed")
		return
	}
	w.logger.Info().Str("path", w.configPath).Msg("config reloaded")

	w.mu.RLock()
	callbacks := append(([]func(*Config))(nil), w.callbacks...)
	w.mu.RUnlock()
	for _, callback := range callbacks {
		callback(cfg)
	}
}

// Stop ends the watch. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	return w.watcher.Close()
}
