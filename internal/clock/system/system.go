// Package system provides the wall clock used to stamp ingested rows.
package system

import "time"

// Clock returns UTC time truncated to microseconds, the finest precision a
// warehouse TIMESTAMP column keeps.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time at microsecond precision.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
