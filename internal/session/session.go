package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Flash is a one-shot user-facing status message shown on the next rendered
// page.
type Flash struct {
	Level   string `json:"level"` // success or error
	Message string `json:"message"`
}

// Data is everything a session carries between requests: the authenticated
// identity, its bearer token, and pending flash messages.
type Data struct {
	UserID   string  `json:"user_id,omitempty"`
	Username string  `json:"username,omitempty"`
	Token    string  `json:"token,omitempty"`
	Flashes  []Flash `json:"flashes,omitempty"`
}

// Authenticated reports whether the session belongs to a logged-in user
func (d *Data) Authenticated() bool {
	return d.UserID != "" && d.Token != ""
}

// Store persists session data by session id. Get returns (nil, nil) for an
// unknown session.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Data, error)
	Save(ctx context.Context, sessionID string, data *Data, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore keeps sessions in Redis as JSON blobs with a TTL
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Data, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &data, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, data *Data, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
