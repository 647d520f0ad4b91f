// ABOUTME: Watches a folder for new meeting videos and hands each one to a handler
// ABOUTME: Concurrent handlers are bounded by a semaphore
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/harper/datachat/internal/logging"
	"github.com/harper/datachat/internal/media"
)

// EventHandler processes one new video file
type EventHandler func(ctx context.Context, filePath string) error

// Watcher monitors one directory
type Watcher struct {
	inputDir  string
	handler   EventHandler
	logger    *log.Logger
	watcher   *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup

	// SettleDelay is how long to wait after a create event before handling,
	// giving the writer time to finish
	SettleDelay time.Duration
}

// New creates a Watcher for inputDir running at most maxConcurrent handlers
func New(inputDir string, handler EventHandler, logger *log.Logger, maxConcurrent int) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fw.Add(inputDir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &Watcher{
		inputDir:    inputDir,
		handler:     handler,
		logger:      logger,
		watcher:     fw,
		semaphore:   make(chan struct{}, maxConcurrent),
		SettleDelay: 500 * time.Millisecond,
	}, nil
}

// Start blocks handling new videos until ctx is cancelled, then waits for
// running handlers to finish
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("watching for meeting videos", "dir", w.inputDir, "formats", media.VideoExtensions)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !media.IsVideoFile(event.Name) {
				w.logger.Debug("ignoring non-video file", "path", event.Name)
				continue
			}

			w.logger.Info("new video detected", "path", event.Name)
			select {
			case w.semaphore <- struct{}{}:
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}

			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()

				select {
				case <-time.After(w.SettleDelay):
				case <-ctx.Done():
					return
				}
				if err := w.handler(ctx, path); err != nil {
					w.logger.Error("failed to process video", "path", path, "err", err)
				}
			}(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

// Stop closes the file watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
