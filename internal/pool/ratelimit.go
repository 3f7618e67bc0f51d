package pool

import (
	"context"
	"sync"
	"time"
)

// WindowLimiter caps job starts per fixed window, independent of the
// concurrency cap. A limit of zero disables the gate.
type WindowLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	windowStart time.Time
	count       int
}

// NewWindowLimiter creates a limiter allowing limit starts per window.
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &WindowLimiter{limit: limit, window: window}
}

// Update replaces the limit and window. Safe to call while workers wait;
// the running window restarts on the next reservation.
func (l *WindowLimiter) Update(limit int, window time.Duration) {
	if window <= 0 {
		window = time.Second
	}
	l.mu.Lock()
	l.limit = limit
	l.window = window
	l.windowStart = time.Time{}
	l.count = 0
	l.mu.Unlock()
}

// Wait blocks until the current window has budget for one more start.
func (l *WindowLimiter) Wait(ctx context.Context) error {
	for {
		next, ok := l.reserve(time.Now())
		if ok {
			return nil
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve takes one slot if the window has budget, otherwise reports when
// the window rolls over.
func (l *WindowLimiter) reserve(now time.Time) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit <= 0 {
		return time.Time{}, true
	}
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.count = 0
	}
	if l.count < l.limit {
		l.count++
		return time.Time{}, true
	}
	return l.windowStart.Add(l.window), false
}
