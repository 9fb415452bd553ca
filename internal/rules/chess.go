// Package rules adapts the chess engine to the room's legality checks.
package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/dkeye/Gambit/internal/core"
	"github.com/dkeye/Gambit/internal/domain"
)

// Chess replays the history on a fresh board for every call, so one value
// is safe to share between rooms.
type Chess struct{}

func NewChess() Chess { return Chess{} }

func (Chess) Apply(history []domain.Move, next domain.Move) (core.Outcome, error) {
	game, err := replay(history)
	if err != nil {
		return core.Outcome{}, err
	}
	if game.Outcome() != nchess.NoOutcome {
		return core.Outcome{}, fmt.Errorf("%w: game already decided", core.ErrIllegalMove)
	}
	if err := game.PushNotationMove(uci(next), nchess.UCINotation{}, nil); err != nil {
		return core.Outcome{}, fmt.Errorf("%w: %s", core.ErrIllegalMove, uci(next))
	}
	return core.Outcome{Terminal: terminal(game), PGN: game.String()}, nil
}

// FEN returns the position after history. Used by tooling.
func FEN(history []domain.Move) (string, error) {
	game, err := replay(history)
	if err != nil {
		return "", err
	}
	return game.FEN(), nil
}

func replay(history []domain.Move) (*nchess.Game, error) {
	game := nchess.NewGame()
	for i, mv := range history {
		if err := game.PushNotationMove(uci(mv), nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, uci(mv), err)
		}
	}
	return game, nil
}

func terminal(game *nchess.Game) core.Terminal {
	switch game.Outcome() {
	case nchess.NoOutcome:
		return core.NotTerminal
	case nchess.WhiteWon, nchess.BlackWon:
		return core.TerminalCheckmate
	}
	if game.Method() == nchess.Stalemate {
		return core.TerminalStalemate
	}
	return core.TerminalDraw
}

func uci(m domain.Move) string {
	return strings.ToLower(strings.TrimSpace(m.From) + strings.TrimSpace(m.To) + strings.TrimSpace(m.Promotion))
}
