package testutil

import "sync"

// LogicalClock is a thread-safe monotonic counter used to sequence
// trace events deterministically. Identical check sequences produce
// identical seq values across runs, which golden-file comparison
// depends on.
type LogicalClock struct {
	mu  sync.Mutex
	seq int64
}

// NewLogicalClock returns a clock starting at 0; the first Next is 1.
func NewLogicalClock() *LogicalClock {
	return &LogicalClock{}
}

// Next increments and returns the next sequence number.
func (c *LogicalClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the current sequence number without incrementing.
func (c *LogicalClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock so a fixture can be replayed.
func (c *LogicalClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
