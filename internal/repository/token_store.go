package repository

import (
	"context"
	"time"

	"github.com/spec-kit/task-gateway/internal/persistence"
)

// TokenStore records one-shot token ids so a refresh or link token cannot
// be redeemed twice.
type TokenStore interface {
	// Consume marks jti as used until ttl elapses. It reports false when the
	// id was already consumed.
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

type redisTokenStore struct {
	redis *persistence.Redis
}

// NewTokenStore returns a Redis-backed TokenStore.
func NewTokenStore(redis *persistence.Redis) TokenStore {
	return &redisTokenStore{redis: redis}
}

func (s *redisTokenStore) Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		// already expired; verification would have rejected it
		return false, nil
	}
	return s.redis.Client.SetNX(ctx, s.redis.Key("used-token", jti), 1, ttl).Result()
}
