package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL stores games in a relational database through gorm.
type SQL struct {
	db *gorm.DB
}

// OpenSQL connects, tunes the pool and migrates the games table.
func OpenSQL(cfg Config) (*SQL, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", cfg.Driver)
	}

	logger := log.With().Str("module", "store.sql").Logger()
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(logger, parseGormLevel(cfg.LogLevel)),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" || cfg.Driver == "sqlite3" {
		// one writer, and in-memory databases are per connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	if err := db.AutoMigrate(&GameModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Str("driver", cfg.Driver).Msg("game store ready")
	return &SQL{db: db}, nil
}

// Record is idempotent per room id.
func (s *SQL) Record(ctx context.Context, rec domain.GameRecord) error {
	m, err := toModel(rec)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "room_id"}}, DoNothing: true}).
		Create(&m).Error
	if err != nil {
		return fmt.Errorf("insert game %s: %w", rec.RoomID, err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, id domain.RoomID) (domain.GameRecord, error) {
	var m GameModel
	err := s.db.WithContext(ctx).Where("room_id = ?", string(id)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.GameRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.GameRecord{}, err
	}
	return m.toRecord()
}

// ListByUser returns the latest games the user played, newest first.
func (s *SQL) ListByUser(ctx context.Context, user domain.UserID, limit int) ([]domain.GameRecord, error) {
	var rows []GameModel
	err := s.db.WithContext(ctx).
		Where("white_id = ? OR black_id = ?", string(user), string(user)).
		Order("finished_at desc").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.GameRecord, 0, len(rows))
	for _, m := range rows {
		rec, err := m.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// UserStats counts the user's games; a game without a winner is a draw.
func (s *SQL) UserStats(ctx context.Context, user domain.UserID) (domain.UserStats, error) {
	id := string(user)
	played := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&GameModel{}).Where("(white_id = ? OR black_id = ?)", id, id)
	}
	var total, wins, draws int64
	if err := played().Count(&total).Error; err != nil {
		return domain.UserStats{}, fmt.Errorf("count games: %w", err)
	}
	if err := played().Where("winner_id = ?", id).Count(&wins).Error; err != nil {
		return domain.UserStats{}, fmt.Errorf("count wins: %w", err)
	}
	if err := played().Where("winner_id IS NULL").Count(&draws).Error; err != nil {
		return domain.UserStats{}, fmt.Errorf("count draws: %w", err)
	}
	return domain.UserStats{
		UserID:     user,
		TotalGames: int(total),
		Wins:       int(wins),
		Losses:     int(total - wins - draws),
		Draws:      int(draws),
	}, nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
