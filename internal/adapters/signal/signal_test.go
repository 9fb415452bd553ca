package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Gambit/internal/app"
	"github.com/dkeye/Gambit/internal/app/orch"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/dkeye/Gambit/internal/rules"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	o := &orch.Orchestrator{Registry: app.NewRegistry(), Policy: app.SimplePolicy{}}
	o.Rooms = core.NewRoomManager(ctx, core.DefaultConfig(), core.Deps{
		Rules:       rules.NewChess(),
		Broadcaster: o,
	})
	ctl := NewSignalWSController(o, NewRoomRateLimiter(100, time.Second), 32768, time.Minute)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		id := c.Query("user")
		if id == "" {
			ctl.HandleSignal(ctx, c, nil)
			return
		}
		ctl.HandleSignal(ctx, c, &domain.User{ID: domain.UserID(id), FullName: id})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		_ = o.Rooms.Shutdown(context.Background())
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if user != "" {
		url += "?user=" + user
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// expect reads until a message of the given type arrives.
func expect(t *testing.T, conn *websocket.Conn, typ string) orch.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var m orch.Message
		require.NoError(t, conn.ReadJSON(&m), "waiting for %s", typ)
		if m.Type == typ {
			return m
		}
	}
}

// expectMove skips move events until one lands on to.
func expectMove(t *testing.T, conn *websocket.Conn, to string) {
	t.Helper()
	for {
		m := expect(t, conn, string(core.EventMove))
		require.NotNil(t, m.Move)
		if m.Move.To == to {
			return
		}
	}
}

func TestSignal_CreateJoinAndPlayToMate(t *testing.T) {
	srv := newTestServer(t)
	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")

	send(t, alice, map[string]any{
		"type": "create", "requestId": "c1",
		"gameRules": map[string]any{"hostPreferredColor": "w", "timer": false},
	})
	created := expect(t, alice, orch.TypeCreated)
	assert.Equal(t, "c1", created.RequestID)
	require.NotEmpty(t, created.RoomID)

	first := expect(t, alice, string(core.EventInit))
	require.NotNil(t, first.Room)
	assert.Equal(t, domain.UserID("alice"), first.Room.HostID)

	send(t, bob, map[string]any{"type": "join", "requestId": "j1", "room": created.RoomID})
	expect(t, bob, string(core.EventInit))
	assert.Equal(t, "j1", expect(t, bob, orch.TypeAck).RequestID)
	expect(t, alice, string(core.EventMemberJoin))
	expect(t, alice, string(core.EventGameStart))

	send(t, bob, map[string]any{"type": "move", "requestId": "m0", "move": map[string]string{"from": "e7", "to": "e5"}})
	nack := expect(t, bob, orch.TypeNack)
	assert.Equal(t, "m0", nack.RequestID)
	assert.Equal(t, core.NameNotYourTurn, nack.Name)

	moves := []struct {
		conn     *websocket.Conn
		from, to string
	}{
		{alice, "f2", "f3"},
		{bob, "e7", "e5"},
		{alice, "g2", "g4"},
		{bob, "d8", "h4"},
	}
	for i, mv := range moves {
		id := "m" + string(rune('1'+i))
		send(t, mv.conn, map[string]any{"type": "move", "requestId": id, "move": map[string]string{"from": mv.from, "to": mv.to}})
		other := alice
		if mv.conn == alice {
			other = bob
		}
		expectMove(t, other, mv.to)
	}

	end := expect(t, alice, string(core.EventGameEnd))
	assert.Equal(t, domain.Checkmate, end.Resolution)
	require.NotNil(t, end.WinnerID)
	assert.Equal(t, domain.UserID("bob"), *end.WinnerID)
}

func TestSignal_UnauthenticatedGetsAuthErrorAndClose(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "")

	m := expect(t, conn, orch.TypeError)
	assert.Equal(t, core.NameAuth, m.Name)

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestSignal_JoinUnknownRoomClosesConnection(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "alice")

	send(t, conn, map[string]any{"type": "join", "requestId": "j1", "room": "nope"})
	m := expect(t, conn, orch.TypeError)
	assert.Equal(t, core.NameRoomNotFound, m.Name)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestSignal_BadJSONIsProtocolError(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "alice")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	m := expect(t, conn, orch.TypeError)
	assert.Equal(t, core.NameBadPayload, m.Name)
}

func TestSignal_InvalidRulesAreNackedNotClosed(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "alice")

	send(t, conn, map[string]any{"type": "create", "requestId": "c1", "mode": "hyperbullet"})
	nack := expect(t, conn, orch.TypeNack)
	assert.Equal(t, core.NameBadPayload, nack.Name)

	send(t, conn, map[string]any{"type": "ping"})
	expect(t, conn, orch.TypePong)
}

func TestSignal_MoveOutsideRoomIsNacked(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv, "alice")

	send(t, conn, map[string]any{"type": "move", "requestId": "m1", "move": map[string]string{"from": "e2", "to": "e4"}})
	nack := expect(t, conn, orch.TypeNack)
	assert.Equal(t, core.NameNotAMember, nack.Name)
}

func TestWsSignalConn_BackpressureAndClose(t *testing.T) {
	c := newWsSignalConn(nil)
	for range sendBuffer {
		require.NoError(t, c.TrySend(core.Frame("x")))
	}
	assert.ErrorIs(t, c.TrySend(core.Frame("x")), ErrBackpressure)

	c.closeWith(core.Frame("bye"), websocket.ClosePolicyViolation)
	assert.ErrorIs(t, c.TrySend(core.Frame("x")), ErrConnClosed)
	assert.Equal(t, websocket.ClosePolicyViolation, c.closeCode)

	n := 0
	for range c.send {
		n++
	}
	assert.Equal(t, sendBuffer, n, "last frame is dropped when the queue is full")
}
