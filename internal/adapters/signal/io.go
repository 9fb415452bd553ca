package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Gambit/internal/app/orch"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.done)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.mu.RLock()
				code := c.closeCode
				c.mu.RUnlock()
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		dctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		ctl.Orch.Disconnect(dctx, sid)
		cancel()
		c.Close()
	}()

	if ctl.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.ReadLimit)
	}
	pongWait := ctl.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if stop := ctl.handleSignal(ctx, sid, c, data); stop {
			return
		}
	}
}

// drain reads until the peer or the writer hangs up.
func (ctl *SignalWSController) drain(c *WsSignalConn) {
	_ = c.conn.SetReadDeadline(time.Now().Add(writeWait))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

type envelope struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
}

// handleSignal dispatches one inbound message. It returns true when the
// connection is being closed.
func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, c *WsSignalConn, data []byte) bool {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		return ctl.protocolError(sid, c, core.ErrBadPayload)
	}

	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	switch env.Type {
	case "create":
		return ctl.handleCreate(rctx, sid, c, env, data)
	case "join":
		return ctl.handleJoin(rctx, sid, c, env, data)
	case "leave":
		return ctl.reply(sid, c, env.RequestID, ctl.Orch.Leave(rctx, sid))
	case "move":
		return ctl.handleMove(rctx, sid, c, env, data)
	case "giveUp":
		return ctl.reply(sid, c, env.RequestID, ctl.Orch.GiveUp(rctx, sid))
	case "draw":
		return ctl.reply(sid, c, env.RequestID, ctl.Orch.Draw(rctx, sid))
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
	return false
}

// reply acks, nacks, or for protocol errors sends error and closes.
func (ctl *SignalWSController) reply(sid core.SessionID, c *WsSignalConn, requestID string, err error) bool {
	if err == nil {
		ctl.Orch.Send(c, orch.Ack(requestID))
		return false
	}
	if core.IsProtocolError(err) {
		return ctl.protocolError(sid, c, err)
	}
	log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("request", requestID).Msg("request rejected")
	ctl.Orch.Send(c, orch.Nack(requestID, err))
	return false
}

func (ctl *SignalWSController) protocolError(sid core.SessionID, c *WsSignalConn, err error) bool {
	log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("protocol error, closing")
	frame, encErr := orch.Encode(orch.ErrorMessage(err))
	if encErr != nil {
		c.Close()
		return true
	}
	c.closeWith(frame, websocket.ClosePolicyViolation)
	return true
}
