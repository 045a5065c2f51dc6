// Package system provides a real clock implementation.
package system

import "time"

// Clock implements pipeline.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time. Error log entries are stamped in
// UTC so lines sort the same regardless of the host timezone.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
