package orch

import (
	"github.com/dkeye/Gambit/internal/app"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator glues connections to rooms. It is also the rooms'
// Broadcaster: events are encoded once and pushed to each recipient's active
// connection without blocking.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *core.RoomManager
	Policy   app.Policy
}

func (o *Orchestrator) Publish(room domain.RoomID, to []domain.UserID, ev core.Event) {
	frame, err := Encode(FromEvent(ev))
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("room", string(room)).Str("event", string(ev.Kind)).Msg("encode event")
		return
	}
	sent := 0
	for _, user := range to {
		sid, conn, ok := o.Registry.Conn(room, user)
		if !ok {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			o.onBackPressure(room, user, sid, err)
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.orch").Str("room", string(room)).Str("event", string(ev.Kind)).
		Int("recipients", len(to)).Int("sent_to", sent).Msg("publish")
}

func (o *Orchestrator) onBackPressure(room domain.RoomID, user domain.UserID, sid core.SessionID, err error) {
	log.Warn().Err(err).Str("module", "app.orch").Str("room", string(room)).Str("user", string(user)).Msg("send failed")
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(room, user) {
	case app.KickMember:
		o.Registry.Kick(sid)
	case app.DropFrame, app.NoAction:
	}
}

// Send writes a reply to one connection, outside of any room.
func (o *Orchestrator) Send(conn core.SignalConnection, m Message) {
	frame, err := Encode(m)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("type", m.Type).Msg("encode reply")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("type", m.Type).Msg("reply dropped")
	}
}
