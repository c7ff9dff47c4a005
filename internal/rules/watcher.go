package rules

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"geoverify/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a table directory for changes to defs.txt/rules.txt and
// reparses the tables when they settle. Parsed tables are handed to the
// reload callback; a table that fails to parse is reported and the
// previous tables stay in effect.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	dir         string
	onReload    func(*Tables)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for diagnostics.
type WatcherStats struct {
	FilesChanged     int
	ReloadsTriggered int
	ParseFailures    int
	Errors           int
	LastEventTime    time.Time
	LastEventPath    string
}

// NewWatcher creates a watcher over the given table directory. The
// directory must contain defs.txt and rules.txt.
func NewWatcher(dir string, onReload func(*Tables)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		dir:         dir,
		onReload:    onReload,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // settle rapid editor saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		logging.Get(logging.CategoryWatch).Warn("initial watch of %s failed: %v", w.dir, err)
	} else {
		logging.Watch("watching table directory: %s", w.dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if name != "defs.txt" && name != "rules.txt" {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	logging.Get(logging.CategoryWatch).Debug("%s event for %s", event.Op, event.Name)

	w.mu.Lock()
	w.stats.FilesChanged++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.debounceMap[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	settled := false
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			delete(w.debounceMap, path)
			settled = true
		}
	}
	w.mu.Unlock()

	// Both tables are reparsed together regardless of which file changed.
	if settled {
		w.TriggerReload()
	}
}

// TriggerReload reparses the tables from the watched directory and, on
// success, hands them to the reload callback.
func (w *Watcher) TriggerReload() {
	defsPath := filepath.Join(w.dir, "defs.txt")
	rulesPath := filepath.Join(w.dir, "rules.txt")

	if _, err := os.Stat(defsPath); err != nil {
		logging.Get(logging.CategoryWatch).Warn("defs table unavailable: %v", err)
		return
	}

	t, err := LoadFiles(defsPath, rulesPath)
	if err != nil {
		logging.Get(logging.CategoryWatch).Error("table reload rejected: %v", err)
		w.mu.Lock()
		w.stats.ParseFailures++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.ReloadsTriggered++
	w.mu.Unlock()

	logging.Watch("tables reloaded: %d theorems, %d definitions", len(t.Theorems), len(t.Defs))
	if w.onReload != nil {
		w.onReload(t)
	}
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching reports whether the watcher is currently running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
