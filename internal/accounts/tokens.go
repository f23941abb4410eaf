package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore is the active-token registry. Each account has at most one
// active token: Save rotates it, Delete reports whether a token was present
// to remove.
type TokenStore interface {
	Save(ctx context.Context, userID, token string, ttl time.Duration) error
	Get(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, userID string) (bool, error)
}

// RedisTokenStore keeps the registry in Redis keyed by user id
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore creates a Redis-backed token registry
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func tokenKey(userID string) string {
	return fmt.Sprintf("auth:token:%s", userID)
}

func (s *RedisTokenStore) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, tokenKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Get returns the active token for the account, or "" when none exists
func (s *RedisTokenStore) Get(ctx context.Context, userID string) (string, error) {
	token, err := s.client.Get(ctx, tokenKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return token, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, userID string) (bool, error) {
	deleted, err := s.client.Del(ctx, tokenKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return deleted > 0, nil
}
