package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorLoggerMiddleware struct {
	logger *logrus.Logger
}

func NewErrorLoggerMiddleware(logger *logrus.Logger) *ErrorLoggerMiddleware {
	return &ErrorLoggerMiddleware{
		logger: logger,
	}
}

// Handle logs 4xx and 5xx responses with detailed context
func (e *ErrorLoggerMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		startTime := time.Now()

		err := c.Next()

		statusCode := c.Response().StatusCode()

		if statusCode >= 400 {
			duration := time.Since(startTime)

			logFields := logrus.Fields{
				"status_code":   statusCode,
				"method":        c.Method(),
				"path":          c.Path(),
				"ip":            c.IP(),
				"user_agent":    c.Get("User-Agent"),
				"request_id":    c.Get("X-Request-ID"),
				"duration_ms":   duration.Milliseconds(),
				"response_size": len(c.Response().Body()),
			}

			if userID := GetUserID(c); userID != "" {
				logFields["user_id"] = userID
			}

			if idempotencyKey := c.Get("Idempotency-Key"); idempotencyKey != "" {
				logFields["idempotency_key"] = idempotencyKey
			}

			if len(c.Request().URI().QueryString()) > 0 {
				logFields["query"] = string(c.Request().URI().QueryString())
			}

			// Request bodies on credential-bearing paths stay out of the logs
			if includeBody(c.Method(), c.Path()) {
				body := string(c.Body())
				if len(body) > 500 {
					body = body[:500] + "...(truncated)"
				}
				if len(body) > 0 {
					logFields["request_body"] = body
				}
			}

			responseBody := string(c.Response().Body())
			if len(responseBody) > 500 {
				responseBody = responseBody[:500] + "...(truncated)"
			}
			if len(responseBody) > 0 {
				logFields["response_body"] = responseBody
			}

			logEntry := e.logger.WithFields(logFields)

			if statusCode >= 500 {
				if err != nil {
					logEntry = logEntry.WithError(err)
				}
				logEntry.Error("Server error response")
			} else if statusCode >= 400 {
				logEntry.Warn("Client error response")
			}
		}

		return err
	}
}

func includeBody(method, path string) bool {
	if method != "POST" && method != "PUT" && method != "PATCH" {
		return false
	}

	credentialPaths := []string{"/login", "/register", "/api/v1/auth/"}
	for _, p := range credentialPaths {
		if strings.HasPrefix(path, p) {
			return false
		}
	}

	return true
}
