package driver

import (
	"sync/atomic"
	"time"
)

// MonotonicClock counts milliseconds since it was created. The counter
// wraps at 32 bits like the board's tick register.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock starts a clock at zero
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Ticks returns elapsed milliseconds
func (c *MonotonicClock) Ticks() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}

// ManualClock only moves when told to
type ManualClock struct {
	ticks atomic.Uint32
}

// NewManualClock creates a clock reading start
func NewManualClock(start uint32) *ManualClock {
	c := &ManualClock{}
	c.ticks.Store(start)
	return c
}

// Ticks returns the current reading
func (c *ManualClock) Ticks() uint32 {
	return c.ticks.Load()
}

// Advance moves the clock forward by d milliseconds
func (c *ManualClock) Advance(d uint32) {
	c.ticks.Add(d)
}

// Set replaces the reading
func (c *ManualClock) Set(t uint32) {
	c.ticks.Store(t)
}
