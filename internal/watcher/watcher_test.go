// ABOUTME: Tests for the meeting folder watcher
// ABOUTME: Creates files in a temp dir and waits for the handler to see video files only
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestWatcher_HandlesNewVideos(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 4)

	w, err := New(dir, func(ctx context.Context, path string) error {
		mu.Lock()
		seen = append(seen, filepath.Base(path))
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, nil, 2)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = w.Stop() }()
	w.SettleDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()

	for _, name := range []string{"notes.txt", "standup.mp4"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	cancel()
	<-errCh

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "standup.mp4" {
		t.Errorf("handled = %v, want [standup.mp4]", seen)
	}
}

func TestNew_MissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing"), nil, nil, 1); err == nil {
		t.Error("New() should fail for a missing directory")
	}
}
