package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReportsExternalEdit(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFile(filepath.Join(dir, "munin.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, st, slog.Default(), func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	// Simulate an edit made outside the process.
	if err := os.WriteFile(st.Path(), []byte(`{"entries":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change callback")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFile(filepath.Join(dir, "munin.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	go func() {
		_ = Watch(ctx, st, slog.Default(), func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Fatal("callback fired for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}
