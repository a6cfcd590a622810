package interfaces

import "time"

// Clock abstracts the time source used for message timestamps and the
// typing sweep, so tests can drive both with fixed instants.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
