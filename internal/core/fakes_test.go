package core

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

// fakeScheduler fires due callbacks synchronously from Advance.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{at: s.now.Add(d), f: f}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.fired && !t.stopped && !t.at.After(s.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type published struct {
	to []domain.UserID
	ev Event
}

type recordingBus struct {
	mu  sync.Mutex
	log []published
}

func (b *recordingBus) Publish(_ domain.RoomID, to []domain.UserID, ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = append(b.log, published{to: append([]domain.UserID(nil), to...), ev: ev})
}

// events returns what id received, in order.
func (b *recordingBus) events(id domain.UserID) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, p := range b.log {
		for _, u := range p.to {
			if u == id {
				out = append(out, p.ev)
			}
		}
	}
	return out
}

func (b *recordingBus) kinds(id domain.UserID) []EventKind {
	var out []EventKind
	for _, ev := range b.events(id) {
		out = append(out, ev.Kind)
	}
	return out
}

func (b *recordingBus) last(id domain.UserID) Event {
	evs := b.events(id)
	if len(evs) == 0 {
		return Event{}
	}
	return evs[len(evs)-1]
}

type chanRecorder struct {
	records chan domain.GameRecord
	err     error
}

func newChanRecorder() *chanRecorder {
	return &chanRecorder{records: make(chan domain.GameRecord, 4)}
}

func (r *chanRecorder) Record(_ context.Context, rec domain.GameRecord) error {
	r.records <- rec
	return r.err
}

func (r *chanRecorder) wait(t *testing.T) domain.GameRecord {
	t.Helper()
	select {
	case rec := <-r.records:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("no game record")
	}
	return domain.GameRecord{}
}

// scriptedRules accepts everything except listed moves.
type scriptedRules struct {
	mu       sync.Mutex
	illegal  map[string]bool
	terminal map[string]Terminal
	calls    int
}

func newScriptedRules() *scriptedRules {
	return &scriptedRules{illegal: map[string]bool{}, terminal: map[string]Terminal{}}
}

func (r *scriptedRules) Apply(history []domain.Move, next domain.Move) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.illegal[next.UCI()] {
		return Outcome{}, ErrIllegalMove
	}
	return Outcome{Terminal: r.terminal[next.UCI()], PGN: "pgn"}, nil
}

var (
	alice = domain.User{ID: "alice", FullName: "Alice"}
	bob   = domain.User{ID: "bob", FullName: "Bob"}
	carol = domain.User{ID: "carol", FullName: "Carol"}
	dave  = domain.User{ID: "dave", FullName: "Dave"}
)

type harness struct {
	t     *testing.T
	ctx   context.Context
	sched *fakeScheduler
	bus   *recordingBus
	rec   *chanRecorder
	rules *scriptedRules
	cfg   Config
	rm    *RoomManager
	room  *Session
}

// newHarness creates a room hosted by alice. The coin always gives the host
// white.
func newHarness(t *testing.T, rules domain.Rules, tweak ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		sched: newFakeScheduler(),
		bus:   &recordingBus{},
		rec:   newChanRecorder(),
		rules: newScriptedRules(),
		cfg:   DefaultConfig(),
	}
	for _, f := range tweak {
		f(&h.cfg)
	}
	h.rm = NewRoomManager(context.Background(), h.cfg, Deps{
		Rules:       h.rules,
		Broadcaster: h.bus,
		Recorder:    h.rec,
		Scheduler:   h.sched,
		CoinFlip:    func() bool { return true },
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.rm.Shutdown(ctx)
	})
	room, err := h.rm.Create(alice, rules)
	require.NoError(t, err)
	h.room = room
	return h
}

func timed(initialMs, incMs int64) domain.Rules {
	return domain.Rules{Timer: true, InitialTimeMs: initialMs, IncrementMs: incMs}
}

// start seats alice (white) and bob (black) and starts the game.
func (h *harness) start() {
	h.t.Helper()
	_, err := h.room.Join(h.ctx, alice, false)
	require.NoError(h.t, err)
	_, err = h.room.Join(h.ctx, bob, false)
	require.NoError(h.t, err)
	require.Equal(h.t, domain.StatusInProgress, h.snapshot().GameState.Status)
}

func (h *harness) snapshot() domain.RoomSnapshot {
	h.t.Helper()
	snap, err := h.room.Snapshot(h.ctx)
	require.NoError(h.t, err)
	return snap
}

// advance moves time and waits until the loop handled any resulting wakes.
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.sched.Advance(d)
	_, _ = h.room.Snapshot(h.ctx)
}

func (h *harness) move(who domain.User, from, to string) error {
	return h.room.Move(h.ctx, who.ID, domain.Move{From: from, To: to})
}

func (h *harness) waitClosed() {
	h.t.Helper()
	select {
	case <-h.room.Done():
	case <-time.After(2 * time.Second):
		h.t.Fatal("room did not close")
	}
}

func member(snap domain.RoomSnapshot, id domain.UserID) (domain.Member, bool) {
	for _, m := range snap.Members {
		if m.User.ID == id {
			return m, true
		}
	}
	return domain.Member{}, false
}
