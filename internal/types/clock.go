package types

import "time"

// Clock abstracts time for testability. Components that make expiry or
// scheduling decisions accept a Clock so tests can pin the current time.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current UTC time.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock implements Clock by returning a fixed time. Intended for tests.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time { return c.T }
