package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/Gambit/internal/domain"
)

// GameModel is the table row of a finished game. Moves and rules are kept as
// JSON text so every supported dialect can hold them.
type GameModel struct {
	ID         uint    `gorm:"primaryKey"`
	RoomID     string  `gorm:"size:64;uniqueIndex;not null"`
	WhiteID    string  `gorm:"size:64;index"`
	BlackID    string  `gorm:"size:64;index"`
	Moves      string  `gorm:"type:text"`
	PGN        string  `gorm:"type:text"`
	Rules      string  `gorm:"type:text"`
	Resolution string  `gorm:"size:32"`
	WinnerID   *string `gorm:"size:64"`
	GameMode   string  `gorm:"size:32"`
	StartedAt  time.Time
	FinishedAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}

func (GameModel) TableName() string { return "games" }

func toModel(rec domain.GameRecord) (GameModel, error) {
	moves, err := json.Marshal(rec.Moves)
	if err != nil {
		return GameModel{}, fmt.Errorf("encode moves: %w", err)
	}
	rules, err := json.Marshal(rec.Rules)
	if err != nil {
		return GameModel{}, fmt.Errorf("encode rules: %w", err)
	}
	m := GameModel{
		RoomID:     string(rec.RoomID),
		WhiteID:    string(rec.WhiteID),
		BlackID:    string(rec.BlackID),
		Moves:      string(moves),
		PGN:        rec.PGN,
		Rules:      string(rules),
		Resolution: string(rec.Resolution),
		GameMode:   rec.GameMode,
		StartedAt:  rec.CreatedAt,
		FinishedAt: rec.FinishedAt,
	}
	if rec.WinnerID != nil {
		w := string(*rec.WinnerID)
		m.WinnerID = &w
	}
	return m, nil
}

func (m GameModel) toRecord() (domain.GameRecord, error) {
	rec := domain.GameRecord{
		RoomID:     domain.RoomID(m.RoomID),
		WhiteID:    domain.UserID(m.WhiteID),
		BlackID:    domain.UserID(m.BlackID),
		PGN:        m.PGN,
		Resolution: domain.Resolution(m.Resolution),
		GameMode:   m.GameMode,
		CreatedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
	if err := json.Unmarshal([]byte(m.Moves), &rec.Moves); err != nil {
		return domain.GameRecord{}, fmt.Errorf("decode moves of %s: %w", m.RoomID, err)
	}
	if err := json.Unmarshal([]byte(m.Rules), &rec.Rules); err != nil {
		return domain.GameRecord{}, fmt.Errorf("decode rules of %s: %w", m.RoomID, err)
	}
	if m.WinnerID != nil {
		w := domain.UserID(*m.WinnerID)
		rec.WinnerID = &w
	}
	return rec, nil
}
