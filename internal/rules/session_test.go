package rules

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderFunc func(context.Context, domain.GameRecord) error

func (f recorderFunc) Record(ctx context.Context, rec domain.GameRecord) error { return f(ctx, rec) }

func TestSession_FoolsMateEndToEnd(t *testing.T) {
	records := make(chan domain.GameRecord, 1)
	rm := core.NewRoomManager(context.Background(), core.DefaultConfig(), core.Deps{
		Rules: NewChess(),
		Recorder: recorderFunc(func(_ context.Context, rec domain.GameRecord) error {
			records <- rec
			return nil
		}),
	})
	t.Cleanup(func() { _ = rm.Shutdown(context.Background()) })

	white := domain.User{ID: "w"}
	black := domain.User{ID: "b"}
	room, err := rm.Create(white, domain.Rules{HostPreferredColor: domain.White})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = room.Join(ctx, white, false)
	require.NoError(t, err)
	_, err = room.Join(ctx, black, false)
	require.NoError(t, err)

	require.NoError(t, room.Move(ctx, white.ID, domain.Move{From: "f2", To: "f3"}))
	assert.ErrorIs(t, room.Move(ctx, black.ID, domain.Move{From: "e7", To: "e4"}), core.ErrIllegalMove)
	require.NoError(t, room.Move(ctx, black.ID, domain.Move{From: "e7", To: "e5"}))
	require.NoError(t, room.Move(ctx, white.ID, domain.Move{From: "g2", To: "g4"}))
	require.NoError(t, room.Move(ctx, black.ID, domain.Move{From: "d8", To: "h4"}))

	snap, err := room.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, snap.GameState.Status)
	assert.Equal(t, domain.Checkmate, snap.GameState.Resolution)
	require.NotNil(t, snap.GameState.WinnerID)
	assert.Equal(t, black.ID, *snap.GameState.WinnerID)

	select {
	case rec := <-records:
		assert.Len(t, rec.Moves, 4)
		assert.Contains(t, rec.PGN, "Qh4")
	case <-time.After(2 * time.Second):
		t.Fatal("no record")
	}
}
