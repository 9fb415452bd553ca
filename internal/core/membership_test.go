package core

import (
	"testing"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembership_Seating(t *testing.T) {
	flips := 0
	ms := NewMembership(alice, "", 2, func() bool { flips++; return false })

	host, ok := ms.Get(alice.ID)
	require.True(t, ok)
	assert.True(t, host.member.State.IsPlayer)
	assert.False(t, host.member.State.Connected)

	_, err := ms.Add(bob, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, flips)
	assert.Equal(t, domain.Black, host.member.State.Color)

	w, ok := ms.Player(domain.White)
	require.True(t, ok)
	assert.Equal(t, bob.ID, w.member.User.ID)

	opp, ok := ms.Opponent(alice.ID)
	require.True(t, ok)
	assert.Equal(t, bob.ID, opp.member.User.ID)

	_, err = ms.Add(carol, false, true)
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, 1, flips)
}

func TestMembership_SpectatorCapCountsConnectedOnly(t *testing.T) {
	ms := NewMembership(alice, domain.White, 1, nil)
	e, err := ms.Add(carol, true, true)
	require.NoError(t, err)
	assert.False(t, e.member.State.IsPlayer)
	ms.SetConnected(carol.ID, true)

	_, err = ms.Add(dave, true, true)
	assert.ErrorIs(t, err, ErrRoomFull)

	ms.SetConnected(carol.ID, false)
	_, err = ms.Add(dave, true, true)
	assert.NoError(t, err)
}

func TestMembership_Remove(t *testing.T) {
	ms := NewMembership(alice, domain.White, 4, nil)
	_, err := ms.Add(carol, true, true)
	require.NoError(t, err)

	assert.ErrorIs(t, ms.Remove(alice.ID), ErrCannotLeave)
	assert.ErrorIs(t, ms.Remove(dave.ID), ErrNotAMember)
	require.NoError(t, ms.Remove(carol.ID))
	assert.Equal(t, 1, ms.Len())
	assert.Len(t, ms.Snapshot(), 1)
}

func TestMembership_ConnectedOrder(t *testing.T) {
	ms := NewMembership(alice, domain.White, 4, nil)
	for _, u := range []domain.User{bob, carol, dave} {
		_, err := ms.Add(u, u.ID != bob.ID, true)
		require.NoError(t, err)
		ms.SetConnected(u.ID, true)
	}
	assert.False(t, ms.SetConnected(bob.ID, true), "already connected")
	assert.Equal(t, []domain.UserID{bob.ID, dave.ID}, ms.Connected(carol.ID))

	white, black := ms.PlayersConnected()
	assert.False(t, white)
	assert.True(t, black)
}
