package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type RateLimitMiddleware struct {
	config      *config.RateLimitConfig
	redisClient *redis.Client
	logger      *logrus.Logger
	luaScript   string
}

func NewRateLimitMiddleware(cfg *config.RateLimitConfig, redisClient *redis.Client, logger *logrus.Logger) *RateLimitMiddleware {
	// Token bucket Lua script for atomic operations
	luaScript := `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local tokens = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local bucket = redis.call("HMGET", key, "tokens", "last_refill")
local current_tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or 0

local now = redis.call("TIME")
local now_ms = now[1] * 1000 + math.floor(now[2] / 1000)

if last_refill > 0 then
    local elapsed = now_ms - last_refill
    local tokens_to_add = math.floor(elapsed / interval_ms * tokens)
    current_tokens = math.min(capacity, current_tokens + tokens_to_add)
end

if current_tokens >= requested then
    current_tokens = current_tokens - requested

    redis.call("HMSET", key, "tokens", current_tokens, "last_refill", now_ms)
    redis.call("EXPIRE", key, 3600)

    return {1, current_tokens, capacity}
else
    redis.call("HMSET", key, "tokens", current_tokens, "last_refill", now_ms)
    redis.call("EXPIRE", key, 3600)

    return {0, current_tokens, capacity}
end`

	return &RateLimitMiddleware{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
		luaScript:   luaScript,
	}
}

// Handle rate limiting middleware
func (r *RateLimitMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !r.config.Enabled {
			return c.Next()
		}

		path := c.Path()
		for _, exemptPath := range r.config.ExemptPaths {
			if strings.HasPrefix(path, exemptPath) {
				return c.Next()
			}
		}

		key, keyType := r.generateKey(c)

		allowed, remaining, resetTime, err := r.checkRateLimit(c.Context(), key)
		if err != nil {
			r.logger.WithError(err).Error("Rate limit check failed")
			// Allow request on Redis failure to avoid blocking traffic
			return c.Next()
		}

		r.setRateLimitHeaders(c, remaining, resetTime)

		if !allowed {
			r.logger.WithFields(logrus.Fields{
				"key":       key,
				"path":      path,
				"method":    c.Method(),
				"remaining": remaining,
			}).Warn("Rate limit exceeded")
			metrics.RecordRateLimitDrop(keyType)

			return r.rateLimitError(c)
		}

		return c.Next()
	}
}

// generateKey creates a rate limit key based on user and IP
func (r *RateLimitMiddleware) generateKey(c *fiber.Ctx) (string, string) {
	if userID := GetUserID(c); userID != "" {
		return fmt.Sprintf("ratelimit:user:%s", userID), "user"
	}

	return fmt.Sprintf("ratelimit:ip:%s", r.getClientIP(c)), "ip"
}

// getClientIP extracts the real client IP
func (r *RateLimitMiddleware) getClientIP(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return c.IP()
}

// checkRateLimit checks if request is within rate limit using token bucket algorithm
func (r *RateLimitMiddleware) checkRateLimit(ctx context.Context, key string) (allowed bool, remaining int, resetTime time.Time, err error) {
	capacity := r.config.Burst
	tokensPerSecond := r.config.RPS
	intervalMs := int(r.config.WindowSize.Milliseconds())
	requested := 1

	result, err := r.redisClient.Eval(ctx, r.luaScript, []string{key}, capacity, tokensPerSecond, intervalMs, requested).Result()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("failed to execute rate limit script: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) != 3 {
		return false, 0, time.Time{}, fmt.Errorf("unexpected script result format")
	}

	allowedInt, ok := resultSlice[0].(int64)
	if !ok {
		return false, 0, time.Time{}, fmt.Errorf("failed to parse allowed result")
	}

	remainingInt, ok := resultSlice[1].(int64)
	if !ok {
		return false, 0, time.Time{}, fmt.Errorf("failed to parse remaining result")
	}

	resetTime = time.Now().Add(r.config.WindowSize).Truncate(time.Second)

	return allowedInt == 1, int(remainingInt), resetTime, nil
}

// setRateLimitHeaders sets standard rate limit headers
func (r *RateLimitMiddleware) setRateLimitHeaders(c *fiber.Ctx, remaining int, resetTime time.Time) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(r.config.RPS))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
	c.Set("X-RateLimit-Window", r.config.WindowSize.String())

	if remaining <= 0 {
		retryAfter := int(time.Until(resetTime).Seconds()) + 1
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set("Retry-After", strconv.Itoa(retryAfter))
	}
}

// rateLimitError returns a rate limit exceeded error
func (r *RateLimitMiddleware) rateLimitError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     "RATE_LIMITED",
			"message":  "Rate limit exceeded. Please try again later.",
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}
