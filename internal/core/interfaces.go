package core

import (
	"context"

	"github.com/dkeye/Gambit/internal/domain"
)

// Frame is a raw encoded payload handed to a transport.
type Frame []byte

type SessionID string

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Terminal classifies a position after a move.
type Terminal int

const (
	NotTerminal Terminal = iota
	TerminalCheckmate
	TerminalStalemate
	TerminalDraw
)

// Outcome is what the rules engine says about the position after a move.
type Outcome struct {
	Terminal Terminal
	// PGN of the game so far, if the engine can render it.
	PGN string
}

// RulesAdapter judges chess legality. Implementations are stateless with
// respect to rooms: the full history is passed on every call.
// Apply returns ErrIllegalMove (possibly wrapped) for an illegal move.
type RulesAdapter interface {
	Apply(history []domain.Move, next domain.Move) (Outcome, error)
}

// Broadcaster delivers room events. Publish is only called from the room
// loop and must not block; per-recipient order must follow call order.
type Broadcaster interface {
	Publish(room domain.RoomID, to []domain.UserID, ev Event)
}

// Recorder persists finished games. Called off the room loop.
type Recorder interface {
	Record(ctx context.Context, rec domain.GameRecord) error
}

// RoomInfo is a read-only listing row.
type RoomInfo struct {
	ID          domain.RoomID     `json:"id"`
	Status      domain.GameStatus `json:"status"`
	MemberCount int               `json:"memberCount"`
	Mode        string            `json:"mode,omitempty"`
}
