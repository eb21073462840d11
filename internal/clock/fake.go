package clock

import "time"

// FakeClock is a Clock frozen at a chosen instant. Tests pin the pipeline's
// date math (days vacant, funnel windows, sync timestamps) to it.
type FakeClock struct {
	now time.Time
}

// NewFakeClock returns a clock frozen at t, normalized to UTC like the
// system clock.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

// Now reports the frozen instant.
func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the frozen instant forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set jumps the frozen instant to t.
func (c *FakeClock) Set(t time.Time) {
	c.now = t.UTC()
}
