package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Gambit/internal/app/orch"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/rs/zerolog/log"
)

type createPayload struct {
	GameRules *domain.Rules `json:"gameRules"`
	Mode      string        `json:"mode"`
}

// handleCreate opens a room and seats the creator in it as the host.
func (ctl *SignalWSController) handleCreate(ctx context.Context, sid core.SessionID, c *WsSignalConn, env envelope, data []byte) bool {
	var p createPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return ctl.protocolError(sid, c, core.ErrBadPayload)
	}
	user, ok := ctl.Orch.Registry.User(sid)
	if !ok {
		return ctl.protocolError(sid, c, core.ErrUnauthorized)
	}

	rules, err := domain.ResolveRules(p.Mode, p.GameRules)
	if err != nil {
		// bad rules are rejected per request, the connection stays
		ctl.Orch.Send(c, orch.Nack(env.RequestID, fmt.Errorf("%w: %v", core.ErrBadPayload, err)))
		return false
	}

	roomID, err := ctl.Orch.Create(user, rules)
	if err != nil {
		return ctl.reply(sid, c, env.RequestID, err)
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(roomID)).Msg("room created")
	ctl.Orch.Send(c, orch.Created(env.RequestID, roomID))

	if _, err := ctl.Orch.Join(ctx, sid, roomID, false); err != nil {
		return ctl.reply(sid, c, env.RequestID, err)
	}
	return false
}

type joinPayload struct {
	Room      domain.RoomID `json:"room"`
	Spectator bool          `json:"spectator"`
}

func (ctl *SignalWSController) handleJoin(ctx context.Context, sid core.SessionID, c *WsSignalConn, env envelope, data []byte) bool {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		return ctl.protocolError(sid, c, core.ErrBadPayload)
	}
	_, err := ctl.Orch.Join(ctx, sid, p.Room, p.Spectator)
	return ctl.reply(sid, c, env.RequestID, err)
}
