package core

import (
	"time"

	"github.com/dkeye/Gambit/internal/domain"
)

// schedule asks the scheduler to post fn back onto the loop after d.
// Each wake carries a generation so a callback that lost the race with a
// cancel can recognize itself as stale.
func (s *Session) schedule(d time.Duration, fn func(gen uint64)) *wakeup {
	s.wakeGen++
	gen := s.wakeGen
	w := &wakeup{gen: gen}
	w.stop = s.deps.Scheduler.AfterFunc(d, func() {
		s.post(func() { fn(gen) })
	})
	return w
}

func (s *Session) cancelWakeups() {
	s.clockWake.cancel()
	s.clockWake = nil
	for id, w := range s.graceWakes {
		w.cancel()
		delete(s.graceWakes, id)
	}
	s.abandonWake.cancel()
	s.abandonWake = nil
	s.lobbyWake.cancel()
	s.lobbyWake = nil
}

// armClock schedules a wake for when the side to move runs out of time.
func (s *Session) armClock() {
	s.clockWake.cancel()
	s.clockWake = nil
	side := s.clock.Running()
	if !s.clock.Enabled() || side == "" {
		return
	}
	s.clockWake = s.schedule(s.clock.Remaining(side), s.onClockWake)
}

func (s *Session) onClockWake(gen uint64) {
	if s.clockWake == nil || s.clockWake.gen != gen || s.status != domain.StatusInProgress {
		return
	}
	side := s.clock.Running()
	if side == "" {
		return
	}
	if s.clock.Remaining(side) > 0 {
		// woke early
		s.armClock()
		return
	}
	s.log.Info().Str("side", side.String()).Msg("flag fell")
	var winner *domain.UserID
	if e, ok := s.members.Player(side.Opposite()); ok {
		id := e.member.User.ID
		winner = &id
	}
	s.finish(domain.OutOfTime, winner)
}

func (s *Session) armGrace(id domain.UserID) {
	if w, ok := s.graceWakes[id]; ok {
		w.cancel()
	}
	s.graceWakes[id] = s.schedule(s.cfg.DisconnectGrace, func(gen uint64) { s.onGraceWake(id, gen) })
}

func (s *Session) onGraceWake(id domain.UserID, gen uint64) {
	w, ok := s.graceWakes[id]
	if !ok || w.gen != gen {
		return
	}
	delete(s.graceWakes, id)
	if s.status != domain.StatusInProgress {
		return
	}
	e, ok := s.members.Get(id)
	if !ok || e.member.State.Connected {
		return
	}
	opp, ok := s.members.Opponent(id)
	if !ok {
		return
	}
	if opp.member.State.Connected {
		s.log.Info().Str("user", string(id)).Msg("disconnect grace expired")
		winner := opp.member.User.ID
		s.finish(domain.PlayerQuit, &winner)
		return
	}
	// Both away: whoever comes back first takes the game.
	e.graceExpired = true
	s.log.Info().Str("user", string(id)).Msg("disconnect grace expired with opponent away")
}

func (s *Session) onAbandonWake(gen uint64) {
	if s.abandonWake == nil || s.abandonWake.gen != gen {
		return
	}
	s.abandonWake = nil
	if s.status != domain.StatusInProgress {
		return
	}
	if white, black := s.members.PlayersConnected(); white || black {
		return
	}
	s.log.Info().Msg("both players gone, game abandoned")
	s.finish(domain.Draw, nil)
}

// armLobby starts the idle countdown of a room nobody is connected to before
// the game started.
func (s *Session) armLobby() {
	if s.status != domain.StatusNotStarted || s.members.AnyConnected() || s.cfg.LobbyTimeout <= 0 {
		return
	}
	s.lobbyWake.cancel()
	s.lobbyWake = s.schedule(s.cfg.LobbyTimeout, s.onLobbyWake)
}

func (s *Session) stopLobby() {
	s.lobbyWake.cancel()
	s.lobbyWake = nil
}

func (s *Session) onLobbyWake(gen uint64) {
	if s.lobbyWake == nil || s.lobbyWake.gen != gen {
		return
	}
	s.lobbyWake = nil
	if s.status != domain.StatusNotStarted || s.members.AnyConnected() {
		return
	}
	s.log.Info().Msg("lobby idle, closing room")
	s.close()
}
