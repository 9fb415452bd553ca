package core

import (
	"context"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds the room timing knobs.
type Config struct {
	DisconnectGrace time.Duration
	AbandonTimeout  time.Duration
	LobbyTimeout    time.Duration
	DrainDelay      time.Duration
	PersistTimeout  time.Duration
	MaxSpectators   int
	InboxSize       int
}

func DefaultConfig() Config {
	return Config{
		DisconnectGrace: 30 * time.Second,
		AbandonTimeout:  2 * time.Minute,
		LobbyTimeout:    10 * time.Minute,
		DrainDelay:      5 * time.Second,
		PersistTimeout:  5 * time.Second,
		MaxSpectators:   16,
		InboxSize:       64,
	}
}

// Deps are the collaborators a room talks to. Broadcaster and Recorder may
// be nil.
type Deps struct {
	Rules       RulesAdapter
	Broadcaster Broadcaster
	Recorder    Recorder
	Scheduler   Scheduler
	CoinFlip    func() bool
}

type wakeup struct {
	gen  uint64
	stop func() bool
}

func (w *wakeup) cancel() {
	if w != nil && w.stop != nil {
		w.stop()
	}
}

// Session is one chess room. Every state change happens on the goroutine
// running Run; public methods enqueue a command and wait for its result.
type Session struct {
	id        domain.RoomID
	rules     domain.Rules
	createdAt time.Time

	cfg  Config
	deps Deps
	log  zerolog.Logger

	members *Membership
	clock   *GameClock
	arbiter *Arbiter

	status     domain.GameStatus
	resolution domain.Resolution
	winner     *domain.UserID

	wakeGen     uint64
	clockWake   *wakeup
	graceWakes  map[domain.UserID]*wakeup
	abandonWake *wakeup
	lobbyWake   *wakeup
	drainWake   *wakeup

	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once
	onClose   func(domain.RoomID)
	// spawn runs background work the owner must wait for on shutdown.
	spawn func(func())
}

func NewSession(id domain.RoomID, host domain.User, rules domain.Rules, cfg Config, deps Deps) *Session {
	if deps.Scheduler == nil {
		deps.Scheduler = SystemScheduler()
	}
	if deps.CoinFlip == nil {
		deps.CoinFlip = func() bool { return rand.IntN(2) == 0 }
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1
	}
	s := &Session{
		id:         id,
		rules:      rules,
		createdAt:  deps.Scheduler.Now(),
		cfg:        cfg,
		deps:       deps,
		log:        log.With().Str("module", "core.session").Str("room", string(id)).Logger(),
		members:    NewMembership(host, rules.HostPreferredColor, cfg.MaxSpectators, deps.CoinFlip),
		clock:      NewGameClock(rules, deps.Scheduler.Now),
		arbiter:    NewArbiter(deps.Rules),
		status:     domain.StatusNotStarted,
		graceWakes: make(map[domain.UserID]*wakeup),
		inbox:      make(chan func(), cfg.InboxSize),
		done:       make(chan struct{}),
		spawn:      func(f func()) { go f() },
	}
	s.armLobby()
	return s
}

func (s *Session) ID() domain.RoomID     { return s.id }
func (s *Session) Done() <-chan struct{} { return s.done }
func (s *Session) Rules() domain.Rules   { return s.rules }
func (s *Session) HostID() domain.UserID { return s.members.Host() }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }

// Run processes commands until the room tears itself down or ctx ends.
func (s *Session) Run(ctx context.Context) {
	defer s.close()
	s.log.Info().Msg("room loop started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case cmd := <-s.inbox:
			s.exec(cmd)
		}
	}
}

func (s *Session) exec(cmd func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("room command panicked")
		}
	}()
	cmd()
}

// do runs cmd on the loop and waits for it. If ctx ends after the command
// was queued, it still runs; only the caller stops waiting.
func (s *Session) do(ctx context.Context, cmd func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		cmd()
	}
	select {
	case s.inbox <- wrapped:
	case <-s.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		select {
		case <-finished:
			return nil
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues a command without waiting. Used by timer callbacks.
func (s *Session) post(cmd func()) {
	select {
	case s.inbox <- cmd:
	case <-s.done:
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.cancelWakeups()
		s.drainWake.cancel()
		if s.onClose != nil {
			s.onClose(s.id)
		}
		close(s.done)
		s.log.Info().Msg("room closed")
	})
}

// Join adds the user to the room, or re-attaches an existing member.
// asSpectator only matters for a user who is not a member yet.
func (s *Session) Join(ctx context.Context, user domain.User, asSpectator bool) (domain.Member, error) {
	var (
		m   domain.Member
		err error
	)
	if e := s.do(ctx, func() { m, err = s.handleJoin(user, asSpectator) }); e != nil {
		return domain.Member{}, e
	}
	return m, err
}

// Reconnect re-attaches an existing member and returns a fresh snapshot.
func (s *Session) Reconnect(ctx context.Context, id domain.UserID) (domain.RoomSnapshot, error) {
	var (
		snap domain.RoomSnapshot
		err  error
	)
	if e := s.do(ctx, func() {
		e, ok := s.members.Get(id)
		if !ok {
			err = ErrNotAMember
			return
		}
		s.attach(e)
		snap = s.snapshot()
	}); e != nil {
		return domain.RoomSnapshot{}, e
	}
	return snap, err
}

// Move submits a move on behalf of id.
func (s *Session) Move(ctx context.Context, id domain.UserID, mv domain.Move) error {
	var err error
	if e := s.do(ctx, func() { err = s.handleMove(id, mv) }); e != nil {
		return e
	}
	return err
}

// GiveUp resigns; the opponent wins.
func (s *Session) GiveUp(ctx context.Context, id domain.UserID) error {
	var err error
	if e := s.do(ctx, func() {
		var opp *memberEntry
		if opp, err = s.playerAction(id); err != nil {
			return
		}
		winner := opp.member.User.ID
		s.finish(domain.GiveUp, &winner)
	}); e != nil {
		return e
	}
	return err
}

// Draw ends the game as a draw at the request of either player.
func (s *Session) Draw(ctx context.Context, id domain.UserID) error {
	var err error
	if e := s.do(ctx, func() {
		if _, err = s.playerAction(id); err != nil {
			return
		}
		s.finish(domain.Draw, nil)
	}); e != nil {
		return e
	}
	return err
}

// Leave removes a spectator. Players get ErrCannotLeave.
func (s *Session) Leave(ctx context.Context, id domain.UserID) error {
	var err error
	if e := s.do(ctx, func() {
		if err = s.members.Remove(id); err != nil {
			return
		}
		s.log.Info().Str("user", string(id)).Msg("spectator left")
		s.publish(s.members.Connected(""), Event{Kind: EventMemberLeave, UserID: id})
		s.armLobby()
	}); e != nil {
		return e
	}
	return err
}

// Disconnect detaches the member's transport. Unknown users are ignored.
func (s *Session) Disconnect(ctx context.Context, id domain.UserID) error {
	return s.do(ctx, func() { s.handleDisconnect(id) })
}

func (s *Session) Snapshot(ctx context.Context) (domain.RoomSnapshot, error) {
	var snap domain.RoomSnapshot
	if e := s.do(ctx, func() { snap = s.snapshot() }); e != nil {
		return domain.RoomSnapshot{}, e
	}
	return snap, nil
}

func (s *Session) Info(ctx context.Context) (RoomInfo, error) {
	var info RoomInfo
	err := s.do(ctx, func() {
		info = RoomInfo{ID: s.id, Status: s.status, MemberCount: s.members.Len(), Mode: s.rules.Mode}
	})
	return info, err
}

func (s *Session) handleJoin(user domain.User, asSpectator bool) (domain.Member, error) {
	if e, ok := s.members.Get(user.ID); ok {
		s.attach(e)
		return e.member, nil
	}
	e, err := s.members.Add(user, asSpectator, s.status == domain.StatusNotStarted)
	if err != nil {
		return domain.Member{}, err
	}
	e.member.State.Connected = true
	s.log.Info().Str("user", string(user.ID)).Bool("player", e.member.State.IsPlayer).
		Str("color", e.member.State.Color.String()).Msg("member joined")

	member := e.member
	s.publish(s.members.Connected(user.ID), Event{Kind: EventMemberJoin, Member: &member})
	s.sendInit(user.ID)
	s.stopLobby()
	s.maybeStart()
	return member, nil
}

// attach marks an existing member connected and settles whatever its absence
// had put in motion.
func (s *Session) attach(e *memberEntry) {
	id := e.member.User.ID
	if s.members.SetConnected(id, true) {
		state := e.member.State
		s.publish(s.members.Connected(id), Event{Kind: EventMemberUpdate, UserID: id, State: &state})
		s.log.Info().Str("user", string(id)).Msg("member reconnected")
	}
	s.sendInit(id)
	s.stopLobby()

	if w, ok := s.graceWakes[id]; ok {
		w.cancel()
		delete(s.graceWakes, id)
	}

	switch s.status {
	case domain.StatusNotStarted:
		s.maybeStart()
	case domain.StatusInProgress:
		if !e.member.State.IsPlayer {
			return
		}
		// a spectator coming back does not keep an abandoned game alive
		s.abandonWake.cancel()
		s.abandonWake = nil
		if opp, ok := s.members.Opponent(id); ok && !opp.member.State.Connected && opp.graceExpired {
			s.log.Info().Str("user", string(id)).Msg("opponent grace already expired, awarding game")
			winner := id
			s.finish(domain.PlayerQuit, &winner)
		}
	}
}

func (s *Session) handleDisconnect(id domain.UserID) {
	e, ok := s.members.Get(id)
	if !ok || !s.members.SetConnected(id, false) {
		return
	}
	state := e.member.State
	s.publish(s.members.Connected(id), Event{Kind: EventMemberUpdate, UserID: id, State: &state})
	s.log.Info().Str("user", string(id)).Msg("member disconnected")

	switch s.status {
	case domain.StatusNotStarted:
		s.armLobby()
	case domain.StatusInProgress:
		if !e.member.State.IsPlayer {
			return
		}
		s.armGrace(id)
		if white, black := s.members.PlayersConnected(); !white && !black && s.abandonWake == nil && s.cfg.AbandonTimeout > 0 {
			s.abandonWake = s.schedule(s.cfg.AbandonTimeout, s.onAbandonWake)
		}
	}
}

func (s *Session) handleMove(id domain.UserID, mv domain.Move) error {
	if err := s.checkInProgress(); err != nil {
		return err
	}
	e, ok := s.members.Get(id)
	if !ok || !e.member.State.IsPlayer {
		return ErrNotAPlayer
	}
	color := e.member.State.Color
	terminal, err := s.arbiter.Submit(color, mv)
	if err != nil {
		s.log.Debug().Err(err).Str("user", string(id)).Str("move", mv.UCI()).Msg("move rejected")
		return err
	}

	s.clock.Stop()
	s.clock.ApplyIncrement(color)
	s.clock.Start(color.Opposite())
	s.armClock()

	accepted := mv
	s.publish(s.members.Connected(""), Event{Kind: EventMove, Move: &accepted, Timer: s.clock.Snapshot()})

	switch terminal {
	case TerminalCheckmate:
		winner := id
		s.finish(domain.Checkmate, &winner)
	case TerminalStalemate:
		s.finish(domain.Stalemate, nil)
	case TerminalDraw:
		s.finish(domain.Draw, nil)
	}
	return nil
}

// playerAction validates a resign or draw request and returns the opponent.
func (s *Session) playerAction(id domain.UserID) (*memberEntry, error) {
	if err := s.checkInProgress(); err != nil {
		return nil, err
	}
	opp, ok := s.members.Opponent(id)
	if !ok {
		return nil, ErrNotAPlayer
	}
	return opp, nil
}

func (s *Session) checkInProgress() error {
	switch s.status {
	case domain.StatusNotStarted:
		return ErrGameNotStarted
	case domain.StatusFinished:
		return ErrGameFinished
	}
	return nil
}

func (s *Session) maybeStart() {
	if s.status != domain.StatusNotStarted {
		return
	}
	if white, black := s.members.PlayersConnected(); !white || !black {
		return
	}
	s.status = domain.StatusInProgress
	s.stopLobby()
	s.clock.Start(domain.White)
	s.armClock()
	s.log.Info().Bool("timer", s.rules.Timer).Msg("game started")
	s.publish(s.members.Connected(""), Event{Kind: EventGameStart})
}

func (s *Session) finish(res domain.Resolution, winner *domain.UserID) {
	if s.status == domain.StatusFinished {
		return
	}
	s.clock.Stop()
	s.cancelWakeups()
	s.status = domain.StatusFinished
	s.resolution = res
	if res.Decisive() {
		s.winner = winner
	}

	ev := Event{Kind: EventGameEnd, Resolution: res, WinnerID: s.winner, Timer: s.clock.Snapshot()}
	s.publish(s.members.Connected(""), ev)

	rec := s.record()
	l := s.log.Info().Str("resolution", string(res)).Int("moves", len(rec.Moves))
	if s.winner != nil {
		l = l.Str("winner", string(*s.winner))
	}
	l.Msg("game finished")

	s.spawn(func() { s.persist(rec) })
	s.drainWake = s.schedule(s.cfg.DrainDelay, func(uint64) { s.close() })
}

func (s *Session) record() domain.GameRecord {
	rec := domain.GameRecord{
		RoomID:     s.id,
		Moves:      s.arbiter.History(),
		PGN:        s.arbiter.PGN(),
		Rules:      s.rules,
		Resolution: s.resolution,
		WinnerID:   s.winner,
		GameMode:   s.rules.Mode,
		CreatedAt:  s.createdAt,
		FinishedAt: s.deps.Scheduler.Now(),
	}
	if e, ok := s.members.Player(domain.White); ok {
		rec.WhiteID = e.member.User.ID
	}
	if e, ok := s.members.Player(domain.Black); ok {
		rec.BlackID = e.member.User.ID
	}
	return rec
}

func (s *Session) persist(rec domain.GameRecord) {
	if s.deps.Recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
	defer cancel()
	if err := s.deps.Recorder.Record(ctx, rec); err != nil {
		s.log.Error().Err(err).Msg("persist game record failed")
		return
	}
	s.log.Debug().Msg("game record persisted")
}

func (s *Session) snapshot() domain.RoomSnapshot {
	return domain.RoomSnapshot{
		ID:               s.id,
		Members:          s.members.Snapshot(),
		HostID:           s.members.Host(),
		CreatedTimestamp: s.createdAt.UnixMilli(),
		GameRules:        s.rules,
		GameState: domain.GameState{
			Status:     s.status,
			Moves:      s.arbiter.History(),
			Turn:       s.arbiter.Turn(),
			Timer:      s.clock.Snapshot(),
			Resolution: s.resolution,
			WinnerID:   s.winner,
		},
	}
}

func (s *Session) sendInit(to domain.UserID) {
	snap := s.snapshot()
	s.publish([]domain.UserID{to}, Event{Kind: EventInit, Room: &snap, UserID: to})
}

func (s *Session) publish(to []domain.UserID, ev Event) {
	if s.deps.Broadcaster == nil || len(to) == 0 {
		return
	}
	s.deps.Broadcaster.Publish(s.id, to, ev)
}
