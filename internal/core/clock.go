package core

import (
	"time"

	"github.com/dkeye/Gambit/internal/domain"
)

// GameClock keeps two countdowns, at most one running. All readings are
// derived from the injected now func so the room loop never sleeps.
type GameClock struct {
	enabled   bool
	increment time.Duration
	white     time.Duration
	black     time.Duration
	running   domain.Color
	since     time.Time
	now       func() time.Time
}

func NewGameClock(rules domain.Rules, now func() time.Time) *GameClock {
	return &GameClock{
		enabled:   rules.Timer,
		increment: rules.Increment(),
		white:     rules.InitialTime(),
		black:     rules.InitialTime(),
		now:       now,
	}
}

func (c *GameClock) Enabled() bool        { return c.enabled }
func (c *GameClock) Running() domain.Color { return c.running }

// Start runs side's countdown, charging whichever side was running before.
func (c *GameClock) Start(side domain.Color) {
	if !c.enabled {
		return
	}
	if c.running != "" {
		c.Stop()
	}
	c.running = side
	c.since = c.now()
}

// Stop charges the running side and returns the elapsed time.
func (c *GameClock) Stop() time.Duration {
	if !c.enabled || c.running == "" {
		return 0
	}
	elapsed := c.now().Sub(c.since)
	if elapsed < 0 {
		elapsed = 0
	}
	left := c.slot(c.running)
	*left -= elapsed
	if *left < 0 {
		*left = 0
	}
	c.running = ""
	return elapsed
}

func (c *GameClock) ApplyIncrement(side domain.Color) {
	if !c.enabled {
		return
	}
	*c.slot(side) += c.increment
}

// Remaining is never negative.
func (c *GameClock) Remaining(side domain.Color) time.Duration {
	r := *c.slot(side)
	if c.running == side {
		if elapsed := c.now().Sub(c.since); elapsed > 0 {
			r -= elapsed
		}
	}
	if r < 0 {
		return 0
	}
	return r
}

// Snapshot is nil for untimed games.
func (c *GameClock) Snapshot() *domain.TimerState {
	if !c.enabled {
		return nil
	}
	return &domain.TimerState{
		WhiteTimeLeft: c.Remaining(domain.White).Milliseconds(),
		BlackTimeLeft: c.Remaining(domain.Black).Milliseconds(),
	}
}

func (c *GameClock) slot(side domain.Color) *time.Duration {
	if side == domain.Black {
		return &c.black
	}
	return &c.white
}
