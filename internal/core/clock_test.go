package core

import (
	"testing"
	"time"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameClock(t *testing.T) {
	sched := newFakeScheduler()
	c := NewGameClock(timed(10_000, 1_000), sched.Now)
	require.True(t, c.Enabled())

	c.Start(domain.White)
	sched.Advance(4 * time.Second)
	assert.Equal(t, 6*time.Second, c.Remaining(domain.White))
	assert.Equal(t, 10*time.Second, c.Remaining(domain.Black))

	assert.Equal(t, 4*time.Second, c.Stop())
	c.ApplyIncrement(domain.White)
	assert.Equal(t, 7*time.Second, c.Remaining(domain.White))
	assert.Equal(t, domain.Color(""), c.Running())

	// starting a side while another runs charges the running one
	c.Start(domain.Black)
	sched.Advance(time.Second)
	c.Start(domain.White)
	assert.Equal(t, 9*time.Second, c.Remaining(domain.Black))

	sched.Advance(time.Minute)
	assert.Equal(t, time.Duration(0), c.Remaining(domain.White), "never negative")
	c.Stop()
	assert.Equal(t, &domain.TimerState{WhiteTimeLeft: 0, BlackTimeLeft: 9_000}, c.Snapshot())
}

func TestGameClock_Disabled(t *testing.T) {
	sched := newFakeScheduler()
	c := NewGameClock(domain.Rules{}, sched.Now)
	c.Start(domain.White)
	sched.Advance(time.Hour)
	assert.Equal(t, time.Duration(0), c.Stop())
	assert.Nil(t, c.Snapshot())
	assert.Equal(t, domain.Color(""), c.Running())
}
