package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "refresh:"

// RedisStore is the durable variant of the refresh token store. It keeps
// the same Put/Get/Revoke contract as MemoryStore; expiry is enforced by
// the redis key TTL, so stale entries vanish without a purge pass.
type RedisStore struct {
	rdb *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisStore{rdb: rdb}
}

type redisEntry struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *RedisStore) Put(ctx context.Context, token string, e Entry) error {
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	val, err := json.Marshal(redisEntry{
		UserID:    e.UserID,
		ExpiresAt: e.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("serialize entry: %w", err)
	}

	if err := s.rdb.Set(ctx, redisKeyPrefix+token, val, ttl).Err(); err != nil {
		return fmt.Errorf("store entry in redis: %w", err)
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (Entry, error) {
	val, err := s.rdb.Get(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		if err == redis.Nil {
			return Entry{}, ErrNotFound
		}

		return Entry{}, fmt.Errorf("retrieve entry from redis: %w", err)
	}

	var e redisEntry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		return Entry{}, fmt.Errorf("deserialize entry: %w", err)
	}

	return Entry{
		UserID:    e.UserID,
		ExpiresAt: e.ExpiresAt,
	}, nil
}

func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete entry from redis: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var _ Store = (*RedisStore)(nil)
