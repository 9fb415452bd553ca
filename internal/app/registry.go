package app

import (
	"context"
	"sync"

	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	User   domain.User
	RoomID domain.RoomID
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

type memberKey struct {
	room domain.RoomID
	user domain.UserID
}

// Registry maps live connections to users and rooms. A connection is in at
// most one room, and a member has at most one active connection per room:
// the newest one wins.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*connEntry
	active   map[memberKey]core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*connEntry),
		active:   make(map[memberKey]core.SessionID),
	}
}

func (r *Registry) BindSignal(sid core.SessionID, user domain.User, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &connEntry{User: user, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("bound signal")
}

func (r *Registry) User(sid core.SessionID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return domain.User{}, false
	}
	return e.User, true
}

// AttachRoom makes sid the active connection of its user in room. It returns
// the connection it displaced, if any.
func (r *Registry) AttachRoom(sid core.SessionID, room domain.RoomID) (core.SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return "", false
	}
	e.RoomID = room
	key := memberKey{room: room, user: e.User.ID}
	prev, had := r.active[key]
	r.active[key] = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("attached room")
	if had && prev != sid {
		return prev, true
	}
	return "", false
}

// DetachRoom clears the room association of sid and reports whether sid was
// the member's active connection.
func (r *Registry) DetachRoom(sid core.SessionID) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.RoomID == "" {
		return "", false
	}
	room := e.RoomID
	e.RoomID = ""
	return room, r.dropActive(sid, room, e.User.ID)
}

// Unbind forgets sid. wasActive tells the caller whether the member's room
// should see a disconnect.
func (r *Registry) Unbind(sid core.SessionID) (room domain.RoomID, user domain.User, wasActive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return "", domain.User{}, false
	}
	delete(r.sessions, sid)
	if e.RoomID != "" {
		wasActive = r.dropActive(sid, e.RoomID, e.User.ID)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Bool("active", wasActive).Msg("unbind session")
	return e.RoomID, e.User, wasActive
}

func (r *Registry) dropActive(sid core.SessionID, room domain.RoomID, user domain.UserID) bool {
	key := memberKey{room: room, user: user}
	if r.active[key] != sid {
		return false
	}
	delete(r.active, key)
	return true
}

func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok || e.RoomID == "" {
		return "", domain.User{}, false
	}
	return e.RoomID, e.User, true
}

// Conn returns the active connection of user in room.
func (r *Registry) Conn(room domain.RoomID, user domain.UserID) (core.SessionID, core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.active[memberKey{room: room, user: user}]
	if !ok {
		return "", nil, false
	}
	e, ok := r.sessions[sid]
	if !ok {
		return "", nil, false
	}
	return sid, e.Conn, true
}

// Kick closes the connection. Its read loop then reports the disconnect.
func (r *Registry) Kick(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	if e.Conn != nil {
		e.Conn.Close()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("kicked session")
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
