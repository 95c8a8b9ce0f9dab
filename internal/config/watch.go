package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/DeforaOS/libSystem/internal/config/watcher"
	"github.com/DeforaOS/libSystem/internal/logging"
)

// Watcher reloads a store whenever its file changes on disk.
//
// A reload that fails (unreadable file, syntax error) leaves the store with
// its previous content; the error is logged and passed to the error
// handlers.
type Watcher struct {
	store *Store
	path  string
	fw    *watcher.Watcher

	logger *slog.Logger

	mu       sync.Mutex
	onReload []func(path string)
	onError  []func(err error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*watcherConfig)

type watcherConfig struct {
	debounce time.Duration
	logger   *slog.Logger
}

// WithDebounce sets how long the file must be quiet before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(c *watcherConfig) {
		c.debounce = d
	}
}

// WithWatcherLogger sets the logger of the watcher.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(c *watcherConfig) {
		c.logger = l
	}
}

// NewWatcher creates a watcher reloading store from path. Call Start to
// begin watching.
func NewWatcher(store *Store, path string, opts ...WatcherOption) (*Watcher, error) {
	cfg := watcherConfig{
		debounce: 100 * time.Millisecond,
		logger:   store.logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &Watcher{
		store:  store,
		path:   path,
		fw:     watcher.New(watcher.WithDebounce(cfg.debounce)),
		logger: logging.OrNop(cfg.logger),
	}
	if err := w.fw.Watch(path); err != nil {
		return nil, &IOError{Op: "watch", Path: path, Err: err}
	}
	w.fw.OnChange(w.handleEvent)
	w.fw.OnError(w.reportError)

	return w, nil
}

// OnReload registers a function called after every successful reload.
func (w *Watcher) OnReload(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// OnError registers a function called when a reload fails.
func (w *Watcher) OnError(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = append(w.onError, fn)
}

// Start begins watching the file.
func (w *Watcher) Start() error {
	if err := w.fw.Start(); err != nil {
		return &IOError{Op: "watch", Path: w.path, Err: err}
	}
	w.logger.Debug("watching config file", "path", w.path)
	return nil
}

// Close stops watching. It is safe to call Close multiple times.
func (w *Watcher) Close() error {
	w.fw.Stop()
	return nil
}

func (w *Watcher) handleEvent(ev watcher.Event) {
	switch ev.Op {
	case watcher.OpRemove, watcher.OpRename:
		// Editors replace files by renaming; the create that follows
		// triggers the reload.
		w.logger.Debug("config file went away", "path", ev.Path, "op", ev.Op.String())
		return
	}

	if err := w.store.Reload(w.path); err != nil {
		w.reportError(err)
		return
	}

	w.logger.Info("config reloaded", "path", w.path)

	w.mu.Lock()
	handlers := append([]func(string){}, w.onReload...)
	w.mu.Unlock()
	for _, fn := range handlers {
		fn(w.path)
	}
}

func (w *Watcher) reportError(err error) {
	w.logger.Warn("config reload failed", "path", w.path, "error", err)

	w.mu.Lock()
	handlers := append([]func(error){}, w.onError...)
	w.mu.Unlock()
	for _, fn := range handlers {
		fn(err)
	}
}
