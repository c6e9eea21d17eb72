package engine

import (
	"sync"
	"time"
)

// Clock supplies the ledger's wall-clock time. Timestamps are stored as Unix
// seconds.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time { return time.Now() }

// MonotonicClock wraps a Clock and never returns a time earlier than one it
// has already returned, so created_at values never regress when the wall
// clock is stepped back.
//
// Thread-safety: MonotonicClock is safe for concurrent use.
type MonotonicClock struct {
	mu    sync.Mutex
	inner Clock
	last  time.Time
}

// NewMonotonicClock wraps inner. A nil inner uses SystemClock.
func NewMonotonicClock(inner Clock) *MonotonicClock {
	if inner == nil {
		inner = SystemClock{}
	}
	return &MonotonicClock{inner: inner}
}

// Now returns the later of the inner clock's time and the last value returned.
func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.inner.Now()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}
