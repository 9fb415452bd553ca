package store

import (
	"context"
	"slices"
	"sync"

	"github.com/dkeye/Gambit/internal/domain"
)

// Memory keeps records for the lifetime of the process.
type Memory struct {
	mu    sync.RWMutex
	games map[domain.RoomID]domain.GameRecord
	order []domain.RoomID
}

func NewMemory() *Memory {
	return &Memory{games: make(map[domain.RoomID]domain.GameRecord)}
}

func (m *Memory) Record(_ context.Context, rec domain.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[rec.RoomID]; ok {
		return nil
	}
	rec.Moves = slices.Clone(rec.Moves)
	m.games[rec.RoomID] = rec
	m.order = append(m.order, rec.RoomID)
	return nil
}

func (m *Memory) Get(_ context.Context, id domain.RoomID) (domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.games[id]
	if !ok {
		return domain.GameRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListByUser(_ context.Context, user domain.UserID, limit int) ([]domain.GameRecord, error) {
	limit = clampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.GameRecord, 0)
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.games[m.order[i]]
		if rec.WhiteID == user || rec.BlackID == user {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *Memory) UserStats(_ context.Context, user domain.UserID) (domain.UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := domain.UserStats{UserID: user}
	for _, rec := range m.games {
		stats.Add(rec)
	}
	return stats, nil
}

func (m *Memory) Close() error { return nil }
