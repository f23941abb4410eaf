package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/storefront-labs/storefront-api/internal/accounts"
	"github.com/storefront-labs/storefront-api/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware validates bearer tokens on the JSON API. Tokens are
// self-issued HS256 by default; when a JWKS endpoint is configured, inbound
// tokens are verified against the remote key set instead. A structurally
// valid token is additionally required to match the account's active-token
// registry entry, which is how logout invalidation takes effect.
type AuthMiddleware struct {
	config   *config.JWTConfig
	tokens   accounts.TokenStore
	logger   *logrus.Logger
	jwkCache *jwk.Cache
}

func NewAuthMiddleware(cfg *config.JWTConfig, tokens accounts.TokenStore, logger *logrus.Logger) (*AuthMiddleware, error) {
	var cache *jwk.Cache
	if cfg.JWKSEndpoint != "" {
		cache = jwk.NewCache(context.Background())
		if err := cache.Register(cfg.JWKSEndpoint, jwk.WithMinRefreshInterval(cfg.CacheTTL)); err != nil {
			return nil, fmt.Errorf("failed to register JWKS endpoint: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := cache.Refresh(ctx, cfg.JWKSEndpoint); err != nil {
			logger.WithError(err).Warn("Failed to pre-fetch JWKS, will try during first request")
		}
	}

	return &AuthMiddleware{
		config:   cfg,
		tokens:   tokens,
		logger:   logger,
		jwkCache: cache,
	}, nil
}

// Authenticate gates a route group behind bearer-token authentication
func (a *AuthMiddleware) Authenticate(exemptPaths []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, exemptPath := range exemptPaths {
			if strings.HasPrefix(path, exemptPath) {
				return c.Next()
			}
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return a.unauthorizedError(c, "MISSING_AUTHORIZATION", "Authorization header is required")
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return a.unauthorizedError(c, "INVALID_TOKEN_FORMAT", "Authorization header must be Bearer token")
		}

		tokenString := authHeader[len(bearerPrefix):]
		if tokenString == "" {
			return a.unauthorizedError(c, "MISSING_TOKEN", "Token is required")
		}

		claims, err := a.validateToken(c.Context(), tokenString)
		if err != nil {
			a.logger.WithError(err).WithField("path", path).Debug("Token validation failed")
			return a.unauthorizedError(c, "INVALID_TOKEN", "Token validation failed")
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			return a.unauthorizedError(c, "INVALID_TOKEN", "Token validation failed")
		}

		// The presented token must be the account's registered one; a token
		// deleted by logout or replaced by a newer login is rejected here
		active, err := a.tokens.Get(c.Context(), userID)
		if err != nil {
			a.logger.WithError(err).Error("Token registry lookup failed")
			return a.unauthorizedError(c, "INVALID_TOKEN", "Token validation failed")
		}
		if active == "" || active != tokenString {
			return a.unauthorizedError(c, "TOKEN_REVOKED", "Token is no longer active")
		}

		c.Locals("user_claims", claims)
		c.Locals("user_id", userID)
		if username, ok := claims["username"].(string); ok {
			c.Locals("username", username)
		}

		return c.Next()
	}
}

func (a *AuthMiddleware) validateToken(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	var keyfunc jwt.Keyfunc
	var methods []string

	if a.jwkCache != nil {
		methods = []string{"RS256", "ES256"}
		keyfunc = func(token *jwt.Token) (interface{}, error) {
			keyID, ok := token.Header["kid"].(string)
			if !ok {
				return nil, fmt.Errorf("kid not found in token header")
			}

			set, err := a.jwkCache.Get(ctx, a.config.JWKSEndpoint)
			if err != nil {
				return nil, fmt.Errorf("failed to get JWK set: %w", err)
			}

			key, found := set.LookupKeyID(keyID)
			if !found {
				return nil, fmt.Errorf("key with ID %s not found", keyID)
			}

			var verifyKey interface{}
			if err := key.Raw(&verifyKey); err != nil {
				return nil, fmt.Errorf("failed to get raw key: %w", err)
			}
			return verifyKey, nil
		}
	} else {
		methods = []string{"HS256"}
		keyfunc = func(token *jwt.Token) (interface{}, error) {
			return []byte(a.config.Secret), nil
		}
	}

	token, err := jwt.Parse(tokenString, keyfunc,
		jwt.WithValidMethods(methods),
		jwt.WithIssuer(a.config.Issuer),
		jwt.WithAudience(a.config.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("failed to get token claims")
	}

	return claims, nil
}

// unauthorizedError returns a standardized unauthorized error response
func (a *AuthMiddleware) unauthorizedError(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"code":     code,
			"message":  message,
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("user_id").(string); ok {
		return userID
	}
	return ""
}

// GetUsername extracts the username from context
func GetUsername(c *fiber.Ctx) string {
	if username, ok := c.Locals("username").(string); ok {
		return username
	}
	return ""
}

// GetUserClaims extracts user claims from context
func GetUserClaims(c *fiber.Ctx) jwt.MapClaims {
	if claims, ok := c.Locals("user_claims").(jwt.MapClaims); ok {
		return claims
	}
	return nil
}
