package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Gambit/internal/app/orch"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	sendBuffer     = 64
	requestTimeout = 5 * time.Second
)

type SignalWSController struct {
	Orch       *orch.Orchestrator
	Limiter    *RoomRateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewSignalWSController(o *orch.Orchestrator, limiter *RoomRateLimiter, readLimit int64, pingPeriod time.Duration) *SignalWSController {
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &SignalWSController{
		Orch:       o,
		Limiter:    limiter,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
	}
}

// WsSignalConn is a websocket endpoint with a bounded outbound queue.
// Frames are written in TrySend order by a single writer.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame
	// done is closed when the writer has exited.
	done chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeCode int
}

func newWsSignalConn(ws *websocket.Conn) *WsSignalConn {
	return &WsSignalConn{
		conn:      ws,
		send:      make(chan core.Frame, sendBuffer),
		done:      make(chan struct{}),
		closeCode: websocket.CloseNormalClosure,
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close drops the connection without flushing.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
	_ = c.conn.Close()
}

// closeWith queues a last frame; the writer flushes it, sends a close frame
// and hangs up.
func (c *WsSignalConn) closeWith(f core.Frame, code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- f:
	default:
	}
	c.closed = true
	c.closeCode = code
	close(c.send)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request. user is nil when the request carried no
// valid token; such a connection gets an AuthError and is closed.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, user *domain.User) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sid := core.SessionID(uuid.NewString())
	conn := newWsSignalConn(ws)
	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)

	if user == nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("unauthenticated connection")
		ctl.protocolError(sid, conn, core.ErrUnauthorized)
		go func() {
			// reader must run so the close handshake completes
			ctl.drain(conn)
			cancel()
		}()
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("new WS connection")
	ctl.Orch.Registry.BindSignal(sid, *user, conn, cancel)
	go func() {
		ctl.readPump(ctx, sid, conn)
		<-conn.done
		cancel()
	}()
}
