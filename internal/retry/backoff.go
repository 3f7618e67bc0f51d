package retry

import (
	"math/rand"
	"time"
)

// Backoff computes the delay before re-attempting a failed job.
// The delay for a failed 1-based attempt is Base * 2^(attempt-1),
// clamped to Max, with optional jitter.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

// DefaultBackoff mirrors the queue defaults: 1s base, doubling per
// attempt, capped at 30s.
func DefaultBackoff() Backoff {
	return Backoff{
		Base: time.Second,
		Max:  30 * time.Second,
	}
}

// Next returns the delay after the given failed attempt (1-based).
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	max := b.Max
	if max <= 0 {
		max = 30 * time.Second
	}

	wait := base
	for i := 1; i < attempt; i++ {
		next := wait * 2
		if next > max || next < wait {
			wait = max
			break
		}
		wait = next
	}
	if wait > max {
		wait = max
	}

	if b.Jitter <= 0 {
		return wait
	}
	jitter := b.Jitter
	if jitter > 1 {
		jitter = 1
	}
	delta := float64(wait) * jitter
	return wait - time.Duration(delta) + time.Duration(rand.Float64()*2*delta)
}
