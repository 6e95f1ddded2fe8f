package clock

import (
	"time"
)

// Clock abstracts the time source used for request durations.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
}

type clock struct{}

// New creates a new instance of Clock.
func New() Clock {
	return clock{}
}

func (clock) Now() time.Time {
	return time.Now()
}

func (clock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Manual is a Clock whose time only moves when advanced. Intended for tests.
type Manual struct {
	current time.Time
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{current: start}
}

// Now returns the manually controlled time.
func (m *Manual) Now() time.Time {
	return m.current
}

// Since returns the duration between t and the manually controlled time.
func (m *Manual) Since(t time.Time) time.Duration {
	return m.current.Sub(t)
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.current = m.current.Add(d)
}
