package core

import (
	"github.com/dkeye/Gambit/internal/domain"
)

type memberEntry struct {
	member domain.Member
	// graceExpired marks a player whose disconnect grace ran out while the
	// opponent was away too.
	graceExpired bool
}

// Membership tracks who is in a room and which side they play.
// Not threadsafe: it is only touched from the room loop.
type Membership struct {
	host          domain.UserID
	byUser        map[domain.UserID]*memberEntry
	order         []domain.UserID
	maxSpectators int
	coin          func() bool
}

// NewMembership seats the host as a disconnected player. The host's color is
// fixed now if they asked for one, otherwise at pairing time.
func NewMembership(host domain.User, preferred domain.Color, maxSpectators int, coin func() bool) *Membership {
	ms := &Membership{
		host:          host.ID,
		byUser:        make(map[domain.UserID]*memberEntry),
		maxSpectators: maxSpectators,
		coin:          coin,
	}
	e := ms.insert(host)
	e.member.State.IsPlayer = true
	if preferred.Valid() {
		e.member.State.Color = preferred
	}
	return ms
}

func (ms *Membership) Host() domain.UserID { return ms.host }

func (ms *Membership) Get(id domain.UserID) (*memberEntry, bool) {
	e, ok := ms.byUser[id]
	return e, ok
}

// Add creates a record for a user who is not yet a member. Player seats are
// only handed out while pairing is open.
func (ms *Membership) Add(user domain.User, asSpectator, pairingOpen bool) (*memberEntry, error) {
	if e, ok := ms.byUser[user.ID]; ok {
		return e, nil
	}
	if !asSpectator {
		if !pairingOpen || ms.playerCount() >= 2 {
			return nil, ErrRoomFull
		}
		hostEntry := ms.byUser[ms.host]
		if !hostEntry.member.State.Color.Valid() {
			if ms.coin() {
				hostEntry.member.State.Color = domain.White
			} else {
				hostEntry.member.State.Color = domain.Black
			}
		}
		e := ms.insert(user)
		e.member.State.IsPlayer = true
		e.member.State.Color = hostEntry.member.State.Color.Opposite()
		return e, nil
	}
	if ms.maxSpectators > 0 && ms.connectedSpectators() >= ms.maxSpectators {
		return nil, ErrRoomFull
	}
	return ms.insert(user), nil
}

// Remove drops a spectator record.
func (ms *Membership) Remove(id domain.UserID) error {
	e, ok := ms.byUser[id]
	if !ok {
		return ErrNotAMember
	}
	if e.member.State.IsPlayer {
		return ErrCannotLeave
	}
	delete(ms.byUser, id)
	for i, u := range ms.order {
		if u == id {
			ms.order = append(ms.order[:i], ms.order[i+1:]...)
			break
		}
	}
	return nil
}

// SetConnected reports whether the flag actually changed.
func (ms *Membership) SetConnected(id domain.UserID, connected bool) bool {
	e, ok := ms.byUser[id]
	if !ok || e.member.State.Connected == connected {
		return false
	}
	e.member.State.Connected = connected
	if connected {
		e.graceExpired = false
	}
	return true
}

// Player returns the member seated at color.
func (ms *Membership) Player(color domain.Color) (*memberEntry, bool) {
	for _, id := range ms.order {
		e := ms.byUser[id]
		if e.member.State.IsPlayer && e.member.State.Color == color {
			return e, true
		}
	}
	return nil, false
}

// Opponent of a seated player.
func (ms *Membership) Opponent(id domain.UserID) (*memberEntry, bool) {
	e, ok := ms.byUser[id]
	if !ok || !e.member.State.IsPlayer || !e.member.State.Color.Valid() {
		return nil, false
	}
	return ms.Player(e.member.State.Color.Opposite())
}

func (ms *Membership) PlayersConnected() (white, black bool) {
	if e, ok := ms.Player(domain.White); ok {
		white = e.member.State.Connected
	}
	if e, ok := ms.Player(domain.Black); ok {
		black = e.member.State.Connected
	}
	return white, black
}

func (ms *Membership) AnyConnected() bool {
	for _, e := range ms.byUser {
		if e.member.State.Connected {
			return true
		}
	}
	return false
}

// Connected lists connected members in join order, skipping except.
func (ms *Membership) Connected(except domain.UserID) []domain.UserID {
	out := make([]domain.UserID, 0, len(ms.order))
	for _, id := range ms.order {
		if id == except {
			continue
		}
		if ms.byUser[id].member.State.Connected {
			out = append(out, id)
		}
	}
	return out
}

func (ms *Membership) Len() int { return len(ms.byUser) }

func (ms *Membership) Snapshot() []domain.Member {
	out := make([]domain.Member, 0, len(ms.order))
	for _, id := range ms.order {
		out = append(out, ms.byUser[id].member)
	}
	return out
}

func (ms *Membership) insert(user domain.User) *memberEntry {
	e := &memberEntry{member: *domain.NewMember(user)}
	ms.byUser[user.ID] = e
	ms.order = append(ms.order, user.ID)
	return e
}

func (ms *Membership) playerCount() int {
	n := 0
	for _, e := range ms.byUser {
		if e.member.State.IsPlayer {
			n++
		}
	}
	return n
}

func (ms *Membership) connectedSpectators() int {
	n := 0
	for _, e := range ms.byUser {
		if !e.member.State.IsPlayer && e.member.State.Connected {
			n++
		}
	}
	return n
}
