package middleware

import (
	"fmt"

	"github.com/storefront-labs/storefront-api/internal/accounts"
	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/session"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Manager holds all middleware instances
type Manager struct {
	Auth        *AuthMiddleware
	Idempotency *IdempotencyMiddleware
	RateLimit   *RateLimitMiddleware
	ErrorLogger *ErrorLoggerMiddleware
	Session     *session.Manager
	Tokens      accounts.TokenStore
	RedisClient *redis.Client
	Config      *config.Config
	Logger      *logrus.Logger
}

// NewManager creates a new middleware manager with all middleware initialized
func NewManager(cfg *config.Config, logger *logrus.Logger) (*Manager, error) {
	redisClient, err := NewRedisClient(&cfg.Redis, &cfg.AWS, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	tokenStore := accounts.NewRedisTokenStore(redisClient)

	authMiddleware, err := NewAuthMiddleware(&cfg.JWT, tokenStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	sessionManager := session.NewManager(session.NewRedisStore(redisClient), &cfg.Session, logger)

	idempotencyMiddleware := NewIdempotencyMiddleware(redisClient, logger)

	rateLimitMiddleware := NewRateLimitMiddleware(&cfg.RateLimit, redisClient, logger)

	errorLoggerMiddleware := NewErrorLoggerMiddleware(logger)

	return &Manager{
		Auth:        authMiddleware,
		Idempotency: idempotencyMiddleware,
		RateLimit:   rateLimitMiddleware,
		ErrorLogger: errorLoggerMiddleware,
		Session:     sessionManager,
		Tokens:      tokenStore,
		RedisClient: redisClient,
		Config:      cfg,
		Logger:      logger,
	}, nil
}

// Close closes all middleware resources
func (m *Manager) Close() error {
	if m.RedisClient != nil {
		return m.RedisClient.Close()
	}
	return nil
}
