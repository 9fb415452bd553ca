package core

import (
	"context"
	"sync"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomManager is the registry of live rooms. Each room runs its own loop
// under the manager's context and removes itself when it tears down.
type RoomManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
	deps   Deps
	wg     sync.WaitGroup
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*Session
	newID  func() domain.RoomID
}

func NewRoomManager(parent context.Context, cfg Config, deps Deps) *RoomManager {
	ctx, cancel := context.WithCancel(parent)
	return &RoomManager{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		deps:   deps,
		rooms:  make(map[domain.RoomID]*Session),
		newID:  func() domain.RoomID { return domain.RoomID(uuid.NewString()) },
	}
}

// Create validates rules, registers a room hosted by host and starts its loop.
func (rm *RoomManager) Create(host domain.User, rules domain.Rules) (*Session, error) {
	rules, err := domain.NormalizeRules(rules)
	if err != nil {
		return nil, err
	}
	if err := rm.ctx.Err(); err != nil {
		return nil, ErrRoomClosed
	}

	id := rm.newID()
	room := NewSession(id, host, rules, rm.cfg, rm.deps)
	room.onClose = rm.remove
	room.spawn = rm.spawn

	rm.mu.Lock()
	rm.rooms[id] = room
	rm.mu.Unlock()

	rm.wg.Add(1)
	go func() {
		defer rm.wg.Done()
		room.Run(rm.ctx)
	}()
	log.Info().Str("module", "core.room_manager").Str("room", string(id)).Str("host", string(host.ID)).
		Str("mode", rules.Mode).Bool("timer", rules.Timer).Msg("room created")
	return room, nil
}

// spawn runs f under the manager's wait group. Callers are room loops, so
// the group is never at zero when this adds to it.
func (rm *RoomManager) spawn(f func()) {
	rm.wg.Add(1)
	go func() {
		defer rm.wg.Done()
		f()
	}()
}

func (rm *RoomManager) Get(id domain.RoomID) (*Session, error) {
	rm.mu.RLock()
	room, ok := rm.rooms[id]
	rm.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (rm *RoomManager) List(ctx context.Context) []RoomInfo {
	rm.mu.RLock()
	rooms := make([]*Session, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		rooms = append(rooms, r)
	}
	rm.mu.RUnlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		info, err := r.Info(ctx)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out
}

func (rm *RoomManager) Len() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

func (rm *RoomManager) remove(id domain.RoomID) {
	rm.mu.Lock()
	delete(rm.rooms, id)
	rm.mu.Unlock()
	log.Info().Str("module", "core.room_manager").Str("room", string(id)).Msg("room removed")
}

// Shutdown stops every room loop and waits for them, or for ctx.
func (rm *RoomManager) Shutdown(ctx context.Context) error {
	rm.cancel()
	done := make(chan struct{})
	go func() {
		rm.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
