package engine

import "time"

// Clock abstracts time.Now() to allow deterministic testing.
// The scheduler and the bot use it to decide what "today" is.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Today returns the civil date of the clock's current instant in loc.
func Today(c Clock, loc *time.Location) time.Time {
	y, m, d := c.Now().In(loc).Date()
	return Date(y, m, d)
}
