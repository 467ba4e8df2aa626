// Package notice holds the transient message banner shown after a failed
// action.
package notice

import (
	"sync"
	"time"
)

// DefaultTimeout is how long a message stays visible.
const DefaultTimeout = 2 * time.Second

// Banner shows one message at a time for a fixed interval. Showing a new
// message restarts the interval.
type Banner struct {
	mu      sync.Mutex
	timeout time.Duration
	message string
	timer   *time.Timer
}

func NewBanner(timeout time.Duration) *Banner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Banner{timeout: timeout}
}

// Show displays msg until the timeout elapses or another message replaces it.
func (b *Banner) Show(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}
	b.message = msg

	var t *time.Timer
	t = time.AfterFunc(b.timeout, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// A timer that lost the race with a newer Show must not clear it.
		if b.timer == t {
			b.message = ""
			b.timer = nil
		}
	})
	b.timer = t
}

// Current returns the visible message, if any.
func (b *Banner) Current() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message, b.message != ""
}

// Dismiss hides the current message immediately.
func (b *Banner) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.message = ""
}

// Timeout is how long each message stays visible.
func (b *Banner) Timeout() time.Duration {
	return b.timeout
}
