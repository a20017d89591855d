// Package clock abstracts wall time and one-shot timers so lock expiry and
// AFK eviction can be driven deterministically in tests.
package clock

import "time"

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	// Stop prevents the callback from firing; it reports false if it already fired or was stopped
	Stop() bool
}

// Clock provides the current time and scheduled callbacks
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns a Clock backed by the runtime timer heap
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
