package core

import "time"

// Scheduler is the room's only source of time. Rooms never sleep; they ask
// for a wake-up and get called back on an arbitrary goroutine.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type systemScheduler struct{}

// SystemScheduler is backed by the runtime timers.
func SystemScheduler() Scheduler { return systemScheduler{} }

func (systemScheduler) Now() time.Time { return time.Now() }

func (systemScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	t := time.AfterFunc(d, f)
	return t.Stop
}
