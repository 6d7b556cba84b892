// Package clock provides an injectable time source.
// Year resolution for ANNUAL reset policy must be consistent within one
// allocation call and deterministic in tests, so wall-clock reads go through
// this interface instead of time.Now scattered across operations.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation.
type System struct{}

// Now returns the current local time.
func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant. For tests.
type Fixed struct {
	T time.Time
}

// Now returns the fixed instant.
func (f Fixed) Now() time.Time { return f.T }
