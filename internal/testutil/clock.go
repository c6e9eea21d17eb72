package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a StepClock: 2024-01-01T00:00:00Z.
var Epoch = time.Unix(1704067200, 0).UTC()

// StepClock is a deterministic wall clock for tests.
//
// Every call to Now returns the current time and then advances it by Step,
// so consecutive operations get distinct, predictable timestamps. Set moves
// the clock anywhere, including backwards, to exercise the monotonic guard.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewStepClock creates a clock starting at Epoch that advances one second
// per call.
func NewStepClock() *StepClock {
	return &StepClock{now: Epoch, step: time.Second}
}

// NewFrozenClock creates a clock that always returns t.
func NewFrozenClock(t time.Time) *StepClock {
	return &StepClock{now: t}
}

// Now returns the current time and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Peek returns the time the next call to Now will return.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
