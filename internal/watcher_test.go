package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestIsTranscriptFile(t *testing.T) {
	tests := map[string]bool{
		"/in/session.json":  true,
		"/in/SESSION.JSON":  true,
		"/in/.session.json": false,
		"/in/session.mp4":   false,
		"/in/session.json~": false,
	}
	for path, want := range tests {
		if got := isTranscriptFile(path); got != want {
			t.Fatalf("isTranscriptFile(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestInboxWatcherHandlesSettledFile(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var mu sync.Mutex
	var seen []string
	done := make(chan struct{}, 4)
	handler := func(ctx context.Context, path string) error {
		mu.Lock()
		seen = append(seen, filepath.Base(path))
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	w, err := NewInboxWatcher(dir, handler, logger, 1)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()
	w.settle = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Start(ctx) }()

	path := filepath.Join(dir, "session.json")
	if err := os.WriteFile(path, []byte(`{"phrases":[]}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler was not called")
	}

	// give a second, duplicate run a chance to show up
	time.Sleep(200 * time.Millisecond)
	cancel()
	<-errc

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "session.json" {
		t.Fatalf("expected exactly one run for session.json, got %v", seen)
	}
}
