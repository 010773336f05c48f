package clock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrAlreadyRunning = errors.New("task already running")

// Task runs fn every interval on a single goroutine. Runs never overlap, and
// once Stop returns fn is not called again.
type Task struct {
	interval time.Duration
	fn       func(now time.Time)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTask(interval time.Duration, fn func(now time.Time)) *Task {
	return &Task{interval: interval, fn: fn}
}

// Start launches the loop. It stops on its own when ctx is cancelled.
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go t.loop(runCtx, done)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish. Stopping an
// idle task is a no-op.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done != nil
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			// A tick and a cancellation can be ready together.
			if ctx.Err() != nil {
				return
			}
			t.fn(now)
		}
	}
}
