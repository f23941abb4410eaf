package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/storefront-labs/storefront-api/internal/accounts"
	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/middleware"
	apperrors "github.com/storefront-labs/storefront-api/pkg/errors"
)

// AuthHandler serves the JSON authentication API
type AuthHandler struct {
	accounts *accounts.Service
	cfg      *config.AuthConfig
	logger   *logrus.Logger
	validate *validator.Validate
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accountSvc *accounts.Service, cfg *config.AuthConfig, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accountSvc,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
	}
}

type registerRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if errs := h.fieldErrors(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Registration failed",
			"errors":  errs,
		})
	}

	result, err := h.accounts.Register(c.Context(), &accounts.RegisterInput{
		Username:          req.Username,
		Email:             req.Email,
		Password:          req.Password,
		Confirm:           req.ConfirmPassword,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		MinPasswordLength: h.cfg.APIPasswordMinLength,
	})
	if err != nil {
		return h.registrationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    result.User,
		"token":   result.Token,
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}

	if errs := h.fieldErrors(&req); errs != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Authentication failed",
			"errors":  errs,
		})
	}

	result, err := h.accounts.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.CodeInvalidCredentials {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Authentication failed",
				"errors":  fiber.Map{"non_field_errors": appErr.Message},
			})
		}
		h.logger.WithError(err).Error("Login failed")
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Authentication successful",
		"user":    result.User,
		"token":   result.Token,
	})
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	deleted, err := h.accounts.Logout(c.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Logout failed")
		return internalError(c)
	}

	if !deleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Failed to log out",
			"error":   "no active token",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Profile handles GET /api/v1/auth/profile
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)

	user, err := h.accounts.Profile(c.Context(), userID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.CodeUnauthenticated {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": appErr.Message,
			})
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Profile lookup failed")
		return internalError(c)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// CheckUsername handles GET /api/v1/auth/check-username
func (h *AuthHandler) CheckUsername(c *fiber.Ctx) error {
	username := c.Query("username")

	available, err := h.accounts.CheckUsernameAvailable(c.Context(), username)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.CodeMissingParameter {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": appErr.Message,
			})
		}
		h.logger.WithError(err).Error("Username check failed")
		return internalError(c)
	}

	message := "Username is available"
	if !available {
		message = "Username is not available"
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"available": available,
		"message":   message,
	})
}

// registrationError maps account service failures onto the registration
// envelope: policy failures land in the field-error map, everything else is
// a server error.
func (h *AuthHandler) registrationError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code == apperrors.CodeInternalError {
		h.logger.WithError(err).Error("Registration failed")
		return internalError(c)
	}

	field := "non_field_errors"
	switch appErr.Code {
	case apperrors.CodePasswordMismatch, apperrors.CodeWeakPassword:
		field = "password"
	case apperrors.CodeUsernameTaken:
		field = "username"
	case apperrors.CodeEmailTaken:
		field = "email"
	}

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Registration failed",
		"errors":  fiber.Map{field: appErr.Message},
	})
}

// fieldErrors runs struct validation and flattens the result into a
// field-to-message map, nil when the payload is valid
func (h *AuthHandler) fieldErrors(req interface{}) map[string]string {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"non_field_errors": "Invalid request"}
	}

	errs := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		errs[jsonFieldName(fe)] = validationMessage(fe)
	}
	return errs
}

func jsonFieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "Username":
		return "username"
	case "Email":
		return "email"
	case "Password":
		return "password"
	case "ConfirmPassword":
		return "confirm_password"
	case "FirstName":
		return "first_name"
	case "LastName":
		return "last_name"
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "This value is too short."
	case "max":
		return "This value is too long."
	}
	return "This value is invalid."
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": "Internal server error",
	})
}
