// ABOUTME: Inactivity deadline for streamed completions
// ABOUTME: A stream is cancelled only when no chunk arrives within the timeout
package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// idleWatch cancels a stream context when the provider stops sending chunks
type idleWatch struct {
	timeout time.Duration
	timer   *time.Timer
	stalled atomic.Bool
}

// watchIdle derives a context that is cancelled after timeout without a touch.
// The returned stop func must be called once the stream is done.
func watchIdle(ctx context.Context, timeout time.Duration) (context.Context, *idleWatch, func()) {
	ctx, cancel := context.WithCancel(ctx)
	w := &idleWatch{timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() {
		w.stalled.Store(true)
		cancel()
	})
	return ctx, w, func() {
		w.timer.Stop()
		cancel()
	}
}

// touch pushes the deadline back after a chunk arrives
func (w *idleWatch) touch() {
	w.timer.Reset(w.timeout)
}

// explain names the stall when the watch fired, otherwise returns err as is
func (w *idleWatch) explain(err error) error {
	if w.stalled.Load() {
		return fmt.Errorf("no data for %s: %w", w.timeout, context.DeadlineExceeded)
	}
	return err
}
