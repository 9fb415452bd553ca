// Package store persists finished games.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
)

var ErrNotFound = errors.New("game record not found")

// Store is a Recorder that can also read its records back.
type Store interface {
	core.Recorder
	Get(ctx context.Context, id domain.RoomID) (domain.GameRecord, error)
	ListByUser(ctx context.Context, user domain.UserID, limit int) ([]domain.GameRecord, error)
	UserStats(ctx context.Context, user domain.UserID) (domain.UserStats, error)
	Close() error
}

type Config struct {
	Driver       string
	DSN          string
	RedisURL     string
	TTL          time.Duration
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

// Open picks a backend by driver name.
func Open(cfg Config) (Store, error) {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		r, err := NewRedis(cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "sqlite", "sqlite3", "postgres", "postgresql", "mysql":
		s, err := OpenSQL(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
