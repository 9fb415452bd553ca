package domain

import "time"

type RoomID string

// Rules are fixed at room creation.
type Rules struct {
	HostPreferredColor Color `json:"hostPreferredColor,omitempty"`
	Timer              bool  `json:"timer"`
	InitialTimeMs      int64 `json:"initialTimeMs,omitempty"`
	IncrementMs        int64 `json:"incrementMs,omitempty"`
	// Mode is the game mode key the rules were derived from, if any.
	Mode string `json:"mode,omitempty"`
}

func (r Rules) InitialTime() time.Duration { return time.Duration(r.InitialTimeMs) * time.Millisecond }
func (r Rules) Increment() time.Duration   { return time.Duration(r.IncrementMs) * time.Millisecond }

type GameStatus string

const (
	StatusNotStarted GameStatus = "not-started"
	StatusInProgress GameStatus = "in-progress"
	StatusFinished   GameStatus = "finished"
)

type Resolution string

const (
	Checkmate  Resolution = "checkmate"
	OutOfTime  Resolution = "out-of-time"
	PlayerQuit Resolution = "player-quit"
	GiveUp     Resolution = "give-up"
	Stalemate  Resolution = "stalemate"
	Draw       Resolution = "draw"
)

// Decisive reports whether the resolution names a winner.
func (r Resolution) Decisive() bool {
	switch r {
	case Checkmate, OutOfTime, PlayerQuit, GiveUp:
		return true
	}
	return false
}

// Move is a board move in coordinate form, e.g. e2 -> e4, promotion "q".
type Move struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI renders the move as "e7e8q".
func (m Move) UCI() string { return m.From + m.To + m.Promotion }

// TimerState holds milliseconds left on each side.
type TimerState struct {
	WhiteTimeLeft int64 `json:"whiteTimeLeft"`
	BlackTimeLeft int64 `json:"blackTimeLeft"`
}

type GameState struct {
	Status     GameStatus  `json:"status"`
	Moves      []Move      `json:"moves"`
	Turn       Color       `json:"turn"`
	Timer      *TimerState `json:"timer,omitempty"`
	Resolution Resolution  `json:"resolution,omitempty"`
	WinnerID   *UserID     `json:"winnerId,omitempty"`
}

// RoomSnapshot is a read-only copy of a room handed to transports.
type RoomSnapshot struct {
	ID               RoomID    `json:"id"`
	Members          []Member  `json:"members"`
	HostID           UserID    `json:"hostId"`
	CreatedTimestamp int64     `json:"createdTimestamp"`
	GameRules        Rules     `json:"gameRules"`
	GameState        GameState `json:"gameState"`
}

// GameRecord is emitted once per finished room for external storage.
type GameRecord struct {
	RoomID     RoomID     `json:"roomId"`
	WhiteID    UserID     `json:"whiteId"`
	BlackID    UserID     `json:"blackId"`
	Moves      []Move     `json:"moves"`
	PGN        string     `json:"pgn,omitempty"`
	Rules      Rules      `json:"timerConfig"`
	Resolution Resolution `json:"resolution"`
	WinnerID   *UserID    `json:"winnerId"`
	GameMode   string     `json:"gameModeLabel,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt time.Time  `json:"finishedAt"`
}

// UserStats are a player's totals over recorded games.
type UserStats struct {
	UserID     UserID `json:"userId"`
	TotalGames int    `json:"totalGames"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
	Draws      int    `json:"draws"`
}

// Add counts rec if user played in it.
func (s *UserStats) Add(rec GameRecord) {
	if rec.WhiteID != s.UserID && rec.BlackID != s.UserID {
		return
	}
	s.TotalGames++
	switch {
	case rec.WinnerID == nil:
		s.Draws++
	case *rec.WinnerID == s.UserID:
		s.Wins++
	default:
		s.Losses++
	}
}
