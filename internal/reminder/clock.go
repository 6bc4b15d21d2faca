package reminder

import "time"

// Timer is a stoppable one-shot timer handle.
type Timer interface {
	// Stop reports whether the timer was stopped before firing.
	Stop() bool
}

// Clock abstracts wall time and timer arming so the engine can run against
// a fake clock in tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by the runtime's wall clock.
func SystemClock() Clock { return systemClock{} }
