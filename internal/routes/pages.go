package routes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/storefront-labs/storefront-api/internal/accounts"
	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/render"
	"github.com/storefront-labs/storefront-api/internal/session"
	apperrors "github.com/storefront-labs/storefront-api/pkg/errors"
)

// PageHandler serves the session-backed page flows: login, register and
// logout. Mutating routes follow the GET-renders, POST-acts-then-redirects
// shape.
type PageHandler struct {
	accounts *accounts.Service
	sessions *session.Manager
	renderer render.Renderer
	cfg      *config.AuthConfig
	logger   *logrus.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(accountSvc *accounts.Service, sessions *session.Manager, renderer render.Renderer, cfg *config.AuthConfig, logger *logrus.Logger) *PageHandler {
	return &PageHandler{
		accounts: accountSvc,
		sessions: sessions,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// LoginPage handles GET /login
func (h *PageHandler) LoginPage(c *fiber.Ctx) error {
	if h.sessions.Current(c).Authenticated() {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return h.render(c, "login", fiber.Map{})
}

// Login handles POST /login
func (h *PageHandler) Login(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	if username == "" || password == "" {
		h.flashError(c, "Please complete all fields.")
		return h.render(c, "login", fiber.Map{"username": username})
	}

	result, err := h.accounts.Login(c.Context(), username, password)
	if err != nil {
		h.flashError(c, "Invalid username or password.")
		return h.render(c, "login", fiber.Map{"username": username})
	}

	if err := h.sessions.Login(c, result.User.UserID, result.User.Username, result.Token); err != nil {
		h.logger.WithError(err).Error("Failed to bind session")
		h.flashError(c, "Something went wrong. Please try again.")
		return h.render(c, "login", fiber.Map{"username": username})
	}

	h.flashSuccess(c, fmt.Sprintf("Welcome, %s!", result.User.Username))
	return c.Redirect("/", fiber.StatusSeeOther)
}

// RegisterPage handles GET /register
func (h *PageHandler) RegisterPage(c *fiber.Ctx) error {
	if h.sessions.Current(c).Authenticated() {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	return h.render(c, "register", fiber.Map{})
}

// Register handles POST /register
func (h *PageHandler) Register(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("username"))
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	confirm := c.FormValue("confirm_password")

	form := fiber.Map{"username": username, "email": email}

	if username == "" || email == "" || password == "" || confirm == "" {
		h.flashError(c, "Please complete all required fields.")
		return h.render(c, "register", form)
	}

	_, err := h.accounts.Register(c.Context(), &accounts.RegisterInput{
		Username:          username,
		Email:             email,
		Password:          password,
		Confirm:           confirm,
		FirstName:         strings.TrimSpace(c.FormValue("first_name")),
		LastName:          strings.TrimSpace(c.FormValue("last_name")),
		MinPasswordLength: h.cfg.PagePasswordMinLength,
	})
	if err != nil {
		h.flashError(c, registrationFlash(err))
		return h.render(c, "register", form)
	}

	h.flashSuccess(c, "Account created successfully! You can now log in.")
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// Logout handles GET /logout. Session teardown always succeeds for the
// visitor, whether or not a token was there to delete.
func (h *PageHandler) Logout(c *fiber.Ctx) error {
	data := h.sessions.Current(c)

	if data.UserID != "" {
		if _, err := h.accounts.Logout(c.Context(), data.UserID); err != nil {
			h.logger.WithError(err).WithField("user_id", data.UserID).Warn("Token deletion failed during logout")
		}
	}

	username := data.Username
	if err := h.sessions.Logout(c); err != nil {
		h.logger.WithError(err).Warn("Failed to clear session")
	}

	if username != "" {
		h.flashSuccess(c, fmt.Sprintf("You have logged out successfully, %s. See you soon!", username))
	} else {
		h.flashSuccess(c, "You have logged out successfully.")
	}

	return c.Redirect("/login", fiber.StatusSeeOther)
}

func (h *PageHandler) render(c *fiber.Ctx, template string, context fiber.Map) error {
	context["flashes"] = h.sessions.PopFlashes(c)
	context["authenticated"] = h.sessions.Current(c).Authenticated()
	return h.renderer.Render(c, template, context)
}

func (h *PageHandler) flashSuccess(c *fiber.Ctx, message string) {
	if err := h.sessions.AddFlash(c, session.LevelSuccess, message); err != nil {
		h.logger.WithError(err).Warn("Failed to add flash")
	}
}

func (h *PageHandler) flashError(c *fiber.Ctx, message string) {
	if err := h.sessions.AddFlash(c, session.LevelError, message); err != nil {
		h.logger.WithError(err).Warn("Failed to add flash")
	}
}

// registrationFlash reduces an account service failure to the message shown
// on the registration form
func registrationFlash(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code != apperrors.CodeInternalError {
		return appErr.Message
	}
	return "Failed to create the account. Please try again."
}
