package session

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid triggers into one callback after a fixed
// quiescence window. A new trigger always supersedes a pending one; it
// never queues behind it.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// NewDebouncer creates a debouncer with the given quiescence window. A
// zero or negative window makes Trigger invoke callbacks immediately.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger schedules fn to run after the window elapses with no further
// triggers. Any previously pending callback is canceled.
func (b *Debouncer) Trigger(fn func()) {
	if b.window <= 0 {
		fn()
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.pending = fn
	b.timer = time.AfterFunc(b.window, func() {
		b.mu.Lock()
		fn := b.pending
		b.pending = nil
		b.timer = nil
		b.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

// Flush runs a pending callback immediately, if any.
func (b *Debouncer) Flush() {
	b.mu.Lock()
	fn := b.pending
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Cancel drops any pending callback.
func (b *Debouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pending = nil
}
