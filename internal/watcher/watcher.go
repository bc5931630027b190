// Package watcher watches the bucket for dropped files and reports when
// they have settled.
//
// E-book files are large and arrive through slow copies, so a drop fires a
// stream of write events. Each file is held until it has been quiet for the
// debounce window; only then is it offered in a settle batch. A file still
// being written stays pending and comes through in a later batch.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is
// considered fully written.
const DefaultDebounce = 2 * time.Second

const pollInterval = 250 * time.Millisecond

// Watcher monitors one directory for settled file drops.
type Watcher struct {
	dir           string
	debounceDelay time.Duration
	debug         bool

	fsWatcher *fsnotify.Watcher
	pending   map[string]time.Time
	mu        sync.Mutex

	onSettle func(paths []string)
}

// Config holds configuration options for the Watcher.
type Config struct {
	Dir           string
	DebounceDelay time.Duration // Default: DefaultDebounce
	Debug         bool
	// OnSettle receives each batch of files that have gone quiet, absolute
	// paths in name order.
	OnSettle func(paths []string)
}

// New creates a Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if cfg.OnSettle == nil {
		return nil, fmt.Errorf("settle callback is required")
	}

	debounce := cfg.DebounceDelay
	if debounce == 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		dir:           cfg.Dir,
		debounceDelay: debounce,
		debug:         cfg.Debug,
		pending:       make(map[string]time.Time),
		onSettle:      cfg.OnSettle,
	}, nil
}

// Start begins watching. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer w.fsWatcher.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Files already sitting in the directory count as drops too.
	w.scheduleExisting()

	w.logDebug("Watching: %s", w.dir)

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logDebug("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		w.schedule(filepath.Join(w.dir, e.Name()))
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return
	}

	w.logDebug("Event: %s %s", event.Op, path)

	switch {
	case event.Op&fsnotify.Write != 0, event.Op&fsnotify.Create != 0:
		w.schedule(path)
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.forget(path)
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now()
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, path)
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.settleReady()
		}
	}
}

// settleReady collects files past the debounce window and hands them to the
// callback as one batch.
func (w *Watcher) settleReady() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, lastEvent := range w.pending {
		if now.Sub(lastEvent) >= w.debounceDelay {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}
	sort.Strings(ready)
	w.logDebug("Settled: %v", ready)
	w.onSettle(ready)
}

func (w *Watcher) logDebug(format string, args ...interface{}) {
	if w.debug {
		fmt.Fprintf(os.Stderr, "[watch] "+format+"\n", args...)
	}
}
