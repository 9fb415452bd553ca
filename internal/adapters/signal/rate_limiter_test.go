package signal

import (
	"testing"
	"time"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRoomRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRoomRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("alice"))
	assert.False(t, rl.Allow("alice"))
	assert.True(t, rl.Allow("bob"), "limits are per user")

	now = now.Add(500 * time.Millisecond)
	assert.False(t, rl.Allow("alice"))

	now = now.Add(600 * time.Millisecond)
	assert.True(t, rl.Allow("alice"))
}

func TestRoomRateLimiter_ZeroLimitDisables(t *testing.T) {
	rl := NewRoomRateLimiter(0, time.Second)
	for range 100 {
		assert.True(t, rl.Allow(domain.UserID("alice")))
	}
}
