package core

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dkeye/Gambit/internal/domain"
)

// Arbiter owns the move history and whose turn it is. Only accepted moves
// are appended.
type Arbiter struct {
	rules RulesAdapter
	moves []domain.Move
	turn  domain.Color
	pgn   string
}

func NewArbiter(rules RulesAdapter) *Arbiter {
	return &Arbiter{rules: rules, turn: domain.White}
}

func (a *Arbiter) Turn() domain.Color { return a.turn }
func (a *Arbiter) PGN() string        { return a.pgn }

func (a *Arbiter) History() []domain.Move {
	return slices.Clone(a.moves)
}

// Submit validates and commits a move by mover. On error nothing changes.
func (a *Arbiter) Submit(mover domain.Color, mv domain.Move) (Terminal, error) {
	if mover != a.turn {
		return NotTerminal, ErrNotYourTurn
	}
	out, err := a.rules.Apply(slices.Clip(a.moves), mv)
	if err != nil {
		if errors.Is(err, ErrIllegalMove) {
			return NotTerminal, ErrIllegalMove
		}
		return NotTerminal, fmt.Errorf("rules: %w", err)
	}
	a.moves = append(a.moves, mv)
	a.turn = a.turn.Opposite()
	a.pgn = out.PGN
	return out.Terminal, nil
}
