package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// Callers read it once per enrichment pass.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Today returns the clock's local calendar date as a civil date.
func Today(c Clock) time.Time {
	return CivilDate(c.Now())
}
