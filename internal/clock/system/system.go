// Package system provides a real clock implementation.
package system

import "time"

// Clock implements crawler.Clock using time.Now in a fixed location.
type Clock struct {
	loc *time.Location
}

// New creates a Clock reporting times in loc; nil means UTC. Snapshot file
// names use the clock's wall time, so binaries pass time.Local.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}
