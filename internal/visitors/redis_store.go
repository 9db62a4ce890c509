package visitors

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionsKey = "visitors:sessions"

// RedisStore keeps sessions in a sorted set scored by last-seen unix millis,
// so several replicas share one live count.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, key: sessionsKey}
}

func (s *RedisStore) Touch(ctx context.Context, id string, at time.Time) error {
	return s.rdb.ZAdd(ctx, s.key, redis.Z{Score: float64(at.UnixMilli()), Member: id}).Err()
}

func (s *RedisStore) Refresh(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := s.rdb.ZScore(ctx, s.key, id).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := s.rdb.ZAddXX(ctx, s.key, redis.Z{Score: float64(at.UnixMilli()), Member: id}).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	return s.rdb.ZRem(ctx, s.key, id).Err()
}

func (s *RedisStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	// "(" makes the bound exclusive: a session seen exactly at cutoff stays.
	upper := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	n, err := s.rdb.ZRemRangeByScore(ctx, s.key, "-inf", upper).Result()
	return int(n), err
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.rdb.ZCard(ctx, s.key).Result()
	return int(n), err
}
