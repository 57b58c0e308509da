package tracking

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keySessionPrefix = "tracking:session:"
	keyIPPrefix      = "tracking:ip:"
)

// Store holds session tokens and the per-session resolved IP cache.
type Store interface {
	// SessionExists reports whether the token is a live session.
	SessionExists(ctx context.Context, token string) (bool, error)
	// PutSession records a session token with the browsing-session TTL.
	PutSession(ctx context.Context, token string, ttl time.Duration) error
	// GetIP returns the cached resolved IP for a session, if any.
	GetIP(ctx context.Context, sessionID string) (string, bool, error)
	// PutIP caches the resolved IP (or sentinel) for the session lifetime.
	PutIP(ctx context.Context, sessionID, ip string, ttl time.Duration) error
	// DeleteIP drops the cached IP, forcing re-resolution.
	DeleteIP(ctx context.Context, sessionID string) error
}

// RedisStore implements Store on Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed tracking store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) SessionExists(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, keySessionPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) PutSession(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, keySessionPrefix+token, "1", ttl).Err()
}

func (s *RedisStore) GetIP(ctx context.Context, sessionID string) (string, bool, error) {
	v, err := s.client.Get(ctx, keyIPPrefix+sessionID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) PutIP(ctx context.Context, sessionID, ip string, ttl time.Duration) error {
	return s.client.Set(ctx, keyIPPrefix+sessionID, ip, ttl).Err()
}

func (s *RedisStore) DeleteIP(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyIPPrefix+sessionID).Err()
}
