package internal

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// InboxHandler processes one transcript file dropped into the inbox
type InboxHandler func(ctx context.Context, transcriptPath string) error

// InboxWatcher monitors a directory for new transcript files
type InboxWatcher struct {
	dir       string
	handler   InboxHandler
	logger    *slog.Logger
	watcher   *fsnotify.Watcher
	settle    time.Duration
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewInboxWatcher watches dir and runs handler for each settled *.json file,
// at most maxConcurrent at a time
func NewInboxWatcher(dir string, handler InboxHandler, logger *slog.Logger, maxConcurrent int) (*InboxWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InboxWatcher{
		dir:       dir,
		handler:   handler,
		logger:    logger,
		watcher:   w,
		settle:    time.Second,
		semaphore: make(chan struct{}, maxConcurrent),
		pending:   make(map[string]*time.Timer),
	}, nil
}

// Start blocks until ctx is cancelled, then waits for running handlers
func (w *InboxWatcher) Start(ctx context.Context) error {
	w.logger.Info("inbox watcher started", "dir", w.dir, "max_concurrent", cap(w.semaphore))

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.wg.Wait()
			w.logger.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isTranscriptFile(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

// Stop closes the file watcher
func (w *InboxWatcher) Stop() error {
	return w.watcher.Close()
}

// schedule (re)arms the settle timer of a file; writers usually emit a
// CREATE followed by several WRITE events
func (w *InboxWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		select {
		case w.semaphore <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-w.semaphore }()

		w.logger.Info("transcript detected", "file", path)
		if err := w.handler(ctx, path); err != nil {
			w.logger.Error("processing transcript failed", "file", path, "err", err)
		}
	})
	w.pending[path] = timer
}

func (w *InboxWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func isTranscriptFile(path string) bool {
	name := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(name), ".json") && !strings.HasPrefix(name, ".")
}
