package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
)

type movePayload struct {
	Move *domain.Move `json:"move"`
}

func (ctl *SignalWSController) handleMove(ctx context.Context, sid core.SessionID, c *WsSignalConn, env envelope, data []byte) bool {
	var p movePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Move == nil || p.Move.From == "" || p.Move.To == "" {
		return ctl.protocolError(sid, c, core.ErrBadPayload)
	}
	if ctl.Limiter != nil {
		if user, ok := ctl.Orch.Registry.User(sid); ok && !ctl.Limiter.Allow(user.ID) {
			return ctl.reply(sid, c, env.RequestID, core.ErrRateLimited)
		}
	}
	return ctl.reply(sid, c, env.RequestID, ctl.Orch.Move(ctx, sid, *p.Move))
}
