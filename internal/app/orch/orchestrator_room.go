package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) Create(host domain.User, rules domain.Rules) (domain.RoomID, error) {
	room, err := o.Rooms.Create(host, rules)
	if err != nil {
		return "", err
	}
	return room.ID(), nil
}

// Join puts the connection into roomID. A connection already in another room
// leaves it first; an older connection of the same member in this room is
// kicked.
func (o *Orchestrator) Join(ctx context.Context, sid core.SessionID, roomID domain.RoomID, asSpectator bool) (domain.Member, error) {
	room, err := o.Rooms.Get(roomID)
	if err != nil {
		return domain.Member{}, err
	}
	user, ok := o.Registry.User(sid)
	if !ok {
		return domain.Member{}, core.ErrUnauthorized
	}

	if cur, _, ok := o.Registry.RoomOf(sid); ok && cur != roomID {
		o.detach(ctx, sid)
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("from_room", string(cur)).Msg("left previous room")
	}

	if prev, replaced := o.Registry.AttachRoom(sid, roomID); replaced {
		log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("replaced", string(prev)).Msg("newer connection took over")
		o.Registry.Kick(prev)
	}

	member, err := room.Join(ctx, user, asSpectator)
	if err != nil {
		o.Registry.DetachRoom(sid)
		return domain.Member{}, err
	}
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(roomID)).
		Str("user", string(user.ID)).Bool("player", member.State.IsPlayer).Msg("joined room")
	return member, nil
}

func (o *Orchestrator) Move(ctx context.Context, sid core.SessionID, mv domain.Move) error {
	room, user, err := o.roomOf(sid)
	if err != nil {
		return err
	}
	return room.Move(ctx, user.ID, mv)
}

func (o *Orchestrator) GiveUp(ctx context.Context, sid core.SessionID) error {
	room, user, err := o.roomOf(sid)
	if err != nil {
		return err
	}
	return room.GiveUp(ctx, user.ID)
}

func (o *Orchestrator) Draw(ctx context.Context, sid core.SessionID) error {
	room, user, err := o.roomOf(sid)
	if err != nil {
		return err
	}
	return room.Draw(ctx, user.ID)
}

// Leave removes a spectator from its room. The connection stays open.
func (o *Orchestrator) Leave(ctx context.Context, sid core.SessionID) error {
	room, user, err := o.roomOf(sid)
	if err != nil {
		return err
	}
	if err := room.Leave(ctx, user.ID); err != nil {
		return err
	}
	o.Registry.DetachRoom(sid)
	return nil
}

// Disconnect is called once per connection when its transport goes away.
func (o *Orchestrator) Disconnect(ctx context.Context, sid core.SessionID) {
	roomID, user, active := o.Registry.Unbind(sid)
	if !active {
		return
	}
	o.disconnectFrom(ctx, roomID, user.ID)
}

func (o *Orchestrator) Snapshot(ctx context.Context, roomID domain.RoomID) (domain.RoomSnapshot, error) {
	room, err := o.Rooms.Get(roomID)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}
	return room.Snapshot(ctx)
}

func (o *Orchestrator) List(ctx context.Context) []core.RoomInfo {
	return o.Rooms.List(ctx)
}

func (o *Orchestrator) KickBySID(sid core.SessionID) {
	o.Registry.Kick(sid)
}

func (o *Orchestrator) detach(ctx context.Context, sid core.SessionID) {
	roomID, active := o.Registry.DetachRoom(sid)
	if !active {
		return
	}
	if user, ok := o.Registry.User(sid); ok {
		o.disconnectFrom(ctx, roomID, user.ID)
	}
}

func (o *Orchestrator) disconnectFrom(ctx context.Context, roomID domain.RoomID, user domain.UserID) {
	room, err := o.Rooms.Get(roomID)
	if err != nil {
		return
	}
	if err := room.Disconnect(ctx, user); err != nil && !errors.Is(err, core.ErrRoomClosed) {
		log.Warn().Err(err).Str("module", "app.orch").Str("room", string(roomID)).Str("user", string(user)).Msg("disconnect")
	}
}

func (o *Orchestrator) roomOf(sid core.SessionID) (*core.Session, domain.User, error) {
	roomID, user, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, domain.User{}, core.ErrNotAMember
	}
	room, err := o.Rooms.Get(roomID)
	if err != nil {
		return nil, domain.User{}, err
	}
	return room, user, nil
}
