package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ValidateAndLoad loads a configuration file and validates it in one
// step. The returned config is usable even when validation reports
// warnings; callers decide what to do with hard errors.
func ValidateAndLoad(filename string) (*Config, *ValidationResult, error) {
	config, err := LoadConfig(filename)
	if err != nil {
		return nil, nil, err
	}
	return config, ValidateConfig(config), nil
}

// WatcherConfig holds configuration for the config file watcher
type WatcherConfig struct {
	// Debounce delay to avoid multiple rapid reloads
	DebounceDelay time.Duration
	// Callback function when config is successfully reloaded
	OnReload func(config *Config, result *ValidationResult)
	// Callback function when reload fails
	OnError func(err error)
	// Whether to validate config before reload
	ValidateBeforeReload bool
}

// DefaultWatcherConfig returns default watcher configuration
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceDelay:        500 * time.Millisecond,
		ValidateBeforeReload: true,
		OnReload:             func(config *Config, result *ValidationResult) {},
		OnError:              func(err error) {},
	}
}

// Watcher watches a configuration file and reloads it on change. Long
// running check sessions pick up proxy and probe changes without a
// restart.
type Watcher struct {
	configPath string
	config     WatcherConfig
	watcher    *fsnotify.Watcher

	currentConfig *Config
	configMutex   sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	debounceTimer *time.Timer
	debounceMutex sync.Mutex
}

// NewWatcher creates a new configuration file watcher
func NewWatcher(configPath string, config WatcherConfig) (*Watcher, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	initialConfig, validationResult, err := ValidateAndLoad(absPath)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to load initial configuration: %w", err)
	}
	if !validationResult.Valid {
		watcher.Close()
		return nil, errors.New("initial configuration is invalid")
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		configPath:    absPath,
		config:        config,
		watcher:       watcher,
		currentConfig: initialConfig,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	// Watch the directory instead of the file directly to handle editor
	// save patterns (rename, delete and recreate).
	configDir := filepath.Dir(absPath)
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go w.watch()

	return w, nil
}

// GetConfig returns the current configuration (thread-safe)
func (w *Watcher) GetConfig() *Config {
	w.configMutex.RLock()
	defer w.configMutex.RUnlock()
	return w.currentConfig
}

func (w *Watcher) watch() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.OnError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

// scheduleReload debounces bursts of filesystem events into one reload.
func (w *Watcher) scheduleReload() {
	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.DebounceDelay, w.reloadConfig)
}

func (w *Watcher) reloadConfig() {
	newConfig, validationResult, err := ValidateAndLoad(w.configPath)
	if err != nil {
		w.config.OnError(fmt.Errorf("failed to reload config: %w", err))
		return
	}

	if w.config.ValidateBeforeReload && !validationResult.Valid {
		var errMsg string
		for _, validationErr := range validationResult.Errors {
			errMsg += validationErr.Error() + "; "
		}
		w.config.OnError(fmt.Errorf("config validation failed: %s", errMsg))
		return
	}

	w.configMutex.Lock()
	w.currentConfig = newConfig
	w.configMutex.Unlock()

	w.config.OnReload(newConfig, validationResult)
}

// Stop stops watching for configuration changes
func (w *Watcher) Stop() error {
	w.cancel()

	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceMutex.Unlock()

	err := w.watcher.Close()
	<-w.done

	return err
}
