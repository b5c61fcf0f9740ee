package schema

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadHandler receives every freshly decoded schema (or the decode error)
// after the watched file changes. Each call carries a new FormSchema value;
// previously delivered schemas are never modified.
type ReloadHandler func(FormSchema, error)

// Watcher reloads a schema file whenever it changes on disk. Bursts of writes
// are collapsed with a debounce window so editors that save in several steps
// trigger a single reload.
type Watcher struct {
	path     string
	loader   *Loader
	handler  ReloadHandler
	debounce time.Duration
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchDebounce overrides the default 100ms debounce window.
func WithWatchDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithWatchLoader overrides the loader used to re-read the file.
func WithWatchLoader(loader *Loader) WatcherOption {
	return func(w *Watcher) {
		if loader != nil {
			w.loader = loader
		}
	}
}

// NewWatcher builds a watcher for the schema file at path.
func NewWatcher(path string, handler ReloadHandler, options ...WatcherOption) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("schema watcher: path is required")
	}
	if handler == nil {
		return nil, errors.New("schema watcher: handler is required")
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		loader:   NewLoader(),
		handler:  handler,
		debounce: 100 * time.Millisecond,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(w)
	}
	return w, nil
}

// Run performs an initial load, then blocks delivering reloads until ctx is
// cancelled. The parent directory is watched so atomic rename-on-save editors
// are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("schema watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("schema watcher: watch %s: %w", filepath.Dir(w.path), err)
	}

	w.reload(ctx)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload(ctx)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.handler(FormSchema{}, fmt.Errorf("schema watcher: %w", err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	loaded, err := w.loader.Load(ctx, SourceFromFile(w.path))
	w.handler(loaded, err)
}
