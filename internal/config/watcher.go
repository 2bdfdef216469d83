package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/logging"
)

// Watcher reloads the configuration file when it changes on disk and hands
// each successfully validated config to the registered callbacks.
type Watcher struct {
	fs         *fsnotify.Watcher
	loader     *Loader
	configPath string
	debounce   time.Duration

	mu        sync.Mutex
	callbacks []func(*Config)
	timer     *time.Timer
	done      chan struct{}
}

// NewWatcher creates a watcher for configPath. Call Start to begin watching.
func NewWatcher(configPath string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fs:         fsWatcher,
		loader:     NewLoader(),
		configPath: configPath,
		debounce:   500 * time.Millisecond,
		done:       make(chan struct{}),
	}, nil
}

// OnChange registers a callback for config changes
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// SetDebounce sets the debounce duration for file changes
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start watches the directory holding the config file, so that editors
// replacing the file by rename are noticed too.
func (w *Watcher) Start() error {
	if err := w.fs.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}
	go w.watch()
	return nil
}

func (w *Watcher) watch() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Error("config watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.Reload)
}

// Reload loads the config file now and notifies callbacks if it is valid.
// An invalid file is logged and the running config stays in place.
func (w *Watcher) Reload() {
	cfg, err := w.loader.Load(w.configPath)
	if err != nil {
		logging.Error("failed to reload config", zap.String("path", w.configPath), zap.Error(err))
		return
	}

	w.mu.Lock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	logging.Info("configuration reloaded", zap.String("path", w.configPath))
	for _, cb := range callbacks {
		cb(cfg)
	}
}

// Stop stops watching for changes
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	close(w.done)
	return w.fs.Close()
}
