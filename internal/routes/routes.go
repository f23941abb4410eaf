package routes

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/storefront-labs/storefront-api/internal/accounts"
	"github.com/storefront-labs/storefront-api/internal/catalog"
	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/metrics"
	"github.com/storefront-labs/storefront-api/internal/middleware"
	"github.com/storefront-labs/storefront-api/internal/render"
	"github.com/storefront-labs/storefront-api/internal/session"
)

// Setup configures all routes: the JSON API under /api/v1 and the
// session-backed page flows at the root.
func Setup(app *fiber.App, cfg *config.Config, logger *logrus.Logger, middlewareManager *middleware.Manager, dynamoClient *dynamodb.Client) {
	catalogClient := catalog.NewClient(&cfg.Catalog, logger)

	userStore := accounts.NewDynamoStore(dynamoClient, cfg.DynamoDB.UsersTableName)
	accountSvc := accounts.NewService(userStore, middlewareManager.Tokens, &cfg.JWT, logger)

	renderer := render.NewJSONRenderer()

	authHandler := NewAuthHandler(accountSvc, &cfg.Auth, logger)
	pageHandler := NewPageHandler(accountSvc, middlewareManager.Session, renderer, &cfg.Auth, logger)
	productHandler := NewProductHandler(catalogClient, middlewareManager.Session, renderer, logger)

	// Health check endpoints (no auth required)
	app.Get("/healthz", healthCheck)
	app.Get("/readyz", readinessCheck(middlewareManager))
	app.Get("/version", versionHandler)

	// Metrics endpoint (no auth required)
	app.Get(cfg.Observability.MetricsPath, metrics.PrometheusHandler())

	// API routes with middleware
	api := app.Group("/api/v1")
	api.Use(metrics.HTTPMetricsMiddleware())
	api.Use(middlewareManager.RateLimit.Handle())
	api.Use(middlewareManager.Idempotency.Handle())
	api.Use(middlewareManager.Idempotency.ResponseCapture())

	api.Get("/products", productHandler.ListAPI)

	// Auth routes (public endpoints)
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/check-username", authHandler.CheckUsername)

	// Protected auth routes (require a valid live token)
	protectedAuth := api.Group("/auth", middlewareManager.Auth.Authenticate(nil))
	protectedAuth.Post("/logout", authHandler.Logout)
	protectedAuth.Get("/profile", authHandler.Profile)

	// Page routes carry the session
	pages := app.Group("", metrics.HTTPMetricsMiddleware(), middlewareManager.Session.Middleware())

	pages.Get("/login", pageHandler.LoginPage)
	pages.Post("/login", pageHandler.Login)
	pages.Get("/register", pageHandler.RegisterPage)
	pages.Post("/register", pageHandler.Register)
	pages.Get("/logout", pageHandler.Logout)

	// Product pages require a signed-in session
	gated := pages.Group("", requireSession(middlewareManager.Session))
	gated.Get("/", productHandler.Home)
	gated.Get("/products/create", productHandler.CreatePage)
	gated.Post("/products/create", productHandler.Create)
	gated.Get("/products/:id/edit", productHandler.EditPage)
	gated.Post("/products/:id/edit", productHandler.Edit)
	gated.Get("/products/:id/delete", productHandler.DeletePage)
	gated.Post("/products/:id/delete", productHandler.Delete)
	gated.Get("/products/:id", productHandler.Detail)

	// 404 handler
	app.Use(notFoundHandler)
}

// requireSession redirects visitors without a signed-in session to the
// login page
func requireSession(sessions *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !sessions.Current(c).Authenticated() {
			return c.Redirect("/login", fiber.StatusSeeOther)
		}
		return c.Next()
	}
}

// healthCheck returns the health status of the service
func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "storefront-api",
	})
}

// readinessCheck checks if the service is ready to accept traffic
func readinessCheck(middlewareManager *middleware.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		redisHealthCheck := middleware.RedisHealthCheck(middlewareManager.RedisClient, middlewareManager.Logger)
		if err := redisHealthCheck(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "not ready",
				"reason":    "redis unavailable",
				"error":     err.Error(),
				"timestamp": time.Now().UTC(),
			})
		}

		return c.JSON(fiber.Map{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "storefront-api",
		})
	}
}

// versionHandler returns version information
func versionHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "storefront-api",
		"version": getVersion(),
		"commit":  getCommit(),
		"built":   getBuildTime(),
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     "NOT_FOUND",
			"message":  "The requested resource was not found",
			"path":     c.Path(),
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}

// Helper functions for version info
func getVersion() string {
	// This would typically be set during build
	return "dev"
}

func getCommit() string {
	// This would typically be set during build
	return "unknown"
}

func getBuildTime() string {
	// This would typically be set during build
	return "unknown"
}
