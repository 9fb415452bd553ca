package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dkeye/Gambit/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userHistoryCap = 100

// Redis keeps records as JSON blobs with a TTL, plus a per-user list of
// recent room ids.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("redis url required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info().Str("module", "store.redis").Str("addr", opts.Addr).Dur("ttl", ttl).Msg("game store ready")
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func gameKey(id domain.RoomID) string { return "gambit:game:" + string(id) }
func userKey(id domain.UserID) string { return "gambit:user:" + string(id) + ":games" }
func statsKey(id domain.UserID) string { return "gambit:user:" + string(id) + ":stats" }

// Record stores rec once. Per-user history and totals are only touched by
// the call that created the game key.
func (r *Redis) Record(ctx context.Context, rec domain.GameRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", rec.RoomID, err)
	}
	created, err := r.rdb.SetNX(ctx, gameKey(rec.RoomID), raw, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("store game %s: %w", rec.RoomID, err)
	}
	if !created {
		return nil
	}
	pipe := r.rdb.TxPipeline()
	for _, u := range []domain.UserID{rec.WhiteID, rec.BlackID} {
		if u == "" {
			continue
		}
		pipe.LPush(ctx, userKey(u), string(rec.RoomID))
		pipe.LTrim(ctx, userKey(u), 0, userHistoryCap-1)
		if r.ttl > 0 {
			pipe.Expire(ctx, userKey(u), r.ttl)
		}
		pipe.HIncrBy(ctx, statsKey(u), statsField(rec, u), 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index game %s: %w", rec.RoomID, err)
	}
	return nil
}

// statsField is the counter rec bumps for user.
func statsField(rec domain.GameRecord, user domain.UserID) string {
	switch {
	case rec.WinnerID == nil:
		return "draws"
	case *rec.WinnerID == user:
		return "wins"
	default:
		return "losses"
	}
}

func (r *Redis) Get(ctx context.Context, id domain.RoomID) (domain.GameRecord, error) {
	raw, err := r.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GameRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.GameRecord{}, err
	}
	return decodeRecord(raw)
}

func (r *Redis) ListByUser(ctx context.Context, user domain.UserID, limit int) ([]domain.GameRecord, error) {
	ids, err := r.rdb.LRange(ctx, userKey(user), 0, int64(clampLimit(limit))-1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.GameRecord{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(domain.RoomID(id))
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.GameRecord, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			// expired
			continue
		}
		rec, err := decodeRecord([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Redis) UserStats(ctx context.Context, user domain.UserID) (domain.UserStats, error) {
	vals, err := r.rdb.HGetAll(ctx, statsKey(user)).Result()
	if err != nil {
		return domain.UserStats{}, err
	}
	stats := domain.UserStats{UserID: user}
	for field, dst := range map[string]*int{"wins": &stats.Wins, "losses": &stats.Losses, "draws": &stats.Draws} {
		if v, ok := vals[field]; ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return domain.UserStats{}, fmt.Errorf("stats %s: %w", field, err)
			}
			*dst = n
		}
	}
	stats.TotalGames = stats.Wins + stats.Losses + stats.Draws
	return stats, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }

func decodeRecord(raw []byte) (domain.GameRecord, error) {
	var rec domain.GameRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.GameRecord{}, fmt.Errorf("decode game record: %w", err)
	}
	return rec, nil
}
