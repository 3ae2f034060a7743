package session

import (
	"context"
	"sync"
	"time"
)

// debouncer holds at most one pending write and runs it after delay unless a
// newer write replaces it first.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func(ctx context.Context) error
	onError func(error)
}

func newDebouncer(delay time.Duration, onError func(error)) *debouncer {
	return &debouncer{delay: delay, onError: onError}
}

// Schedule replaces any pending write with fn.
func (d *debouncer) Schedule(fn func(ctx context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = fn
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *debouncer) fire() {
	fn := d.take()
	if fn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil && d.onError != nil {
		d.onError(err)
	}
}

// Flush runs the pending write now, if there is one.
func (d *debouncer) Flush(ctx context.Context) error {
	fn := d.take()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Cancel drops the pending write.
func (d *debouncer) Cancel() {
	d.take()
}

// Pending reports whether a write is waiting.
func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *debouncer) take() func(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	fn := d.pending
	d.pending = nil
	return fn
}
