package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomManager_CreateGetList(t *testing.T) {
	h := newHarness(t, domain.Rules{Timer: true})

	assert.Equal(t, int64(domain.DefaultInitialTimeMs), h.room.Rules().InitialTimeMs)
	assert.Equal(t, alice.ID, h.room.HostID())

	got, err := h.rm.Get(h.room.ID())
	require.NoError(t, err)
	assert.Same(t, h.room, got)

	_, err = h.rm.Get("nope")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	infos := h.rm.List(h.ctx)
	require.Len(t, infos, 1)
	assert.Equal(t, domain.StatusNotStarted, infos[0].Status)
	assert.Equal(t, 1, infos[0].MemberCount)
}

func TestRoomManager_RejectsBadRules(t *testing.T) {
	h := newHarness(t, domain.Rules{})
	_, err := h.rm.Create(bob, domain.Rules{HostPreferredColor: "red"})
	assert.ErrorIs(t, err, domain.ErrInvalidColor)
	assert.Equal(t, 1, h.rm.Len())
}

func TestRoomManager_IsolatesRooms(t *testing.T) {
	h := newHarness(t, domain.Rules{})
	other, err := h.rm.Create(carol, domain.Rules{})
	require.NoError(t, err)
	assert.NotEqual(t, h.room.ID(), other.ID())

	h.start()
	require.NoError(t, h.move(alice, "e2", "e4"))

	snap, err := other.Snapshot(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.GameState.Moves)
	assert.Equal(t, domain.StatusNotStarted, snap.GameState.Status)
}

func TestRoomManager_Shutdown(t *testing.T) {
	rm := NewRoomManager(context.Background(), DefaultConfig(), Deps{Rules: newScriptedRules(), Scheduler: newFakeScheduler()})
	var rooms []*Session
	for i := 0; i < 3; i++ {
		r, err := rm.Create(domain.User{ID: domain.UserID(fmt.Sprintf("u%d", i))}, domain.Rules{})
		require.NoError(t, err)
		rooms = append(rooms, r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rm.Shutdown(ctx))
	for _, r := range rooms {
		select {
		case <-r.Done():
		default:
			t.Fatal("room still open after shutdown")
		}
	}
	assert.Equal(t, 0, rm.Len())

	_, err := rm.Create(alice, domain.Rules{})
	assert.ErrorIs(t, err, ErrRoomClosed)
}

type gateRecorder struct {
	started chan struct{}
	release chan struct{}
}

func (r *gateRecorder) Record(context.Context, domain.GameRecord) error {
	close(r.started)
	<-r.release
	return nil
}

func TestRoomManager_ShutdownWaitsForRecords(t *testing.T) {
	rec := &gateRecorder{started: make(chan struct{}), release: make(chan struct{})}
	rm := NewRoomManager(context.Background(), DefaultConfig(), Deps{
		Rules:     newScriptedRules(),
		Recorder:  rec,
		Scheduler: newFakeScheduler(),
	})
	room, err := rm.Create(alice, domain.Rules{})
	require.NoError(t, err)
	ctx := context.Background()
	_, err = room.Join(ctx, alice, false)
	require.NoError(t, err)
	_, err = room.Join(ctx, bob, false)
	require.NoError(t, err)
	require.NoError(t, room.GiveUp(ctx, alice.ID))
	<-rec.started

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rm.Shutdown(short), context.DeadlineExceeded)

	close(rec.release)
	done, cancel2 := context.WithTimeout(ctx, time.Second)
	defer cancel2()
	assert.NoError(t, rm.Shutdown(done))
}

func TestErrorName(t *testing.T) {
	assert.Equal(t, NameIllegalMove, ErrorName(fmt.Errorf("wrapped: %w", ErrIllegalMove)))
	assert.Equal(t, NameRoomFull, ErrorName(ErrRoomFull))
	assert.Equal(t, NameTimeout, ErrorName(context.DeadlineExceeded))
	assert.Equal(t, NameInternal, ErrorName(fmt.Errorf("boom")))
	assert.True(t, IsProtocolError(ErrRoomNotFound))
	assert.False(t, IsProtocolError(ErrNotYourTurn))
}
