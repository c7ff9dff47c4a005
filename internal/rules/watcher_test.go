package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTables(t *testing.T, dir, defs, rules string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "defs.txt"), []byte(defs), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "rules.txt"), []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherTriggerReload(t *testing.T) {
	dir := t.TempDir()
	writeTables(t, dir, testDefs, testRules)

	reloaded := make(chan *Tables, 1)
	w, err := NewWatcher(dir, func(tab *Tables) { reloaded <- tab })
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	w.TriggerReload()
	select {
	case tab := <-reloaded:
		if len(tab.Theorems) != 2 {
			t.Errorf("reloaded %d theorems, want 2", len(tab.Theorems))
		}
	default:
		t.Fatal("TriggerReload() did not invoke the callback")
	}
	if got := w.GetStats().ReloadsTriggered; got != 1 {
		t.Errorf("ReloadsTriggered = %d, want 1", got)
	}
}

func TestWatcherRejectsBadTables(t *testing.T) {
	dir := t.TempDir()
	writeTables(t, dir, testDefs, testRules)

	reloaded := make(chan *Tables, 1)
	w, err := NewWatcher(dir, func(tab *Tables) { reloaded <- tab })
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "rules.txt"), []byte("broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.TriggerReload()

	select {
	case tab := <-reloaded:
		t.Fatalf("callback invoked with %d theorems for a broken table", len(tab.Theorems))
	default:
	}
	stats := w.GetStats()
	if stats.ParseFailures != 1 {
		t.Errorf("ParseFailures = %d, want 1", stats.ParseFailures)
	}
	if stats.ReloadsTriggered != 0 {
		t.Errorf("ReloadsTriggered = %d, want 0", stats.ReloadsTriggered)
	}
}

func TestWatcherLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeTables(t, dir, testDefs, testRules)

	w, err := NewWatcher(dir, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.IsWatching() {
		t.Error("IsWatching() = true before Start")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !w.IsWatching() {
		t.Error("IsWatching() = false after Start")
	}

	// Second Start is a no-op.
	if err := w.Start(ctx); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return")
	}
	if w.IsWatching() {
		t.Error("IsWatching() = true after Stop")
	}
}
