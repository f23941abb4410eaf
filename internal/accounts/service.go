package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/metrics"
	apperrors "github.com/storefront-labs/storefront-api/pkg/errors"
)

// Service implements registration, login, logout and availability checks.
// Accounts live in the UserStore; the single active token per account lives
// in the TokenStore and is rotated on every successful login/registration.
type Service struct {
	users  UserStore
	tokens TokenStore
	jwtCfg *config.JWTConfig
	logger *logrus.Logger
}

// NewService creates an account service
func NewService(users UserStore, tokens TokenStore, jwtCfg *config.JWTConfig, logger *logrus.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		jwtCfg: jwtCfg,
		logger: logger,
	}
}

// Register creates a new account and issues its first token.
//
// Failure order: password mismatch, weak password (threshold set by the
// entry point), username taken, email taken. No account is created and no
// token issued on any failure.
func (s *Service) Register(ctx context.Context, in *RegisterInput) (*AuthResult, error) {
	if in.Password != in.Confirm {
		metrics.RecordAuthOperation("register", "failure")
		return nil, apperrors.NewAppError(apperrors.CodePasswordMismatch, "Passwords do not match.", nil)
	}

	if len(in.Password) < in.MinPasswordLength {
		metrics.RecordAuthOperation("register", "failure")
		return nil, apperrors.NewAppErrorf(apperrors.CodeWeakPassword, nil,
			"Password must be at least %d characters long.", in.MinPasswordLength)
	}

	existing, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeInternalError, "failed to check username", err)
	}
	if existing != nil {
		metrics.RecordAuthOperation("register", "failure")
		return nil, apperrors.NewAppError(apperrors.CodeUsernameTaken, "This username is already in use.", nil)
	}

	existing, err = s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeInternalError, "failed to check email", err)
	}
	if existing != nil {
		metrics.RecordAuthOperation("register", "failure")
		return nil, apperrors.NewAppError(apperrors.CodeEmailTaken, "This email is already registered.", nil)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeInternalError, "failed to hash password", err)
	}

	now := time.Now()
	user := &User{
		UserID:       uuid.New().String(),
		Username:     in.Username,
		PasswordHash: string(passwordHash),
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		metrics.RecordAuthOperation("register", "failure")
		return nil, apperrors.NewAppError(apperrors.CodeInternalError, "failed to create account", err)
	}

	result, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User registered")
	metrics.RecordAuthOperation("register", "success")

	return result, nil
}

// Login verifies credentials and rotates the active token. The failure
// message never reveals which of the two fields was wrong.
func (s *Service) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeInternalError, "failed to look up user", err)
	}
	if user == nil {
		metrics.RecordAuthOperation("login", "failure")
		return nil, apperrors.NewAppError(apperrors.CodeInvalidCredentials, "Invalid username or password.", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.WithField("username", username).Warn("Invalid password")
		metrics.RecordAuthOperation("login", "failure")
		return nil, apperrors.NewAppError(apperrors.CodeInvalidCredentials, "Invalid username or password.", nil)
	}

	result, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"username": user.Username,
	}).Info("User logged in")
	metrics.RecordAuthOperation("login", "success")

	return result, nil
}

// Logout deletes the account's active token and reports whether one was
// present to delete. Callers decide what a missing token means: the page
// flow ignores it, the API flow reports failure.
func (s *Service) Logout(ctx context.Context, userID string) (bool, error) {
	deleted, err := s.tokens.Delete(ctx, userID)
	if err != nil {
		metrics.RecordAuthOperation("logout", "failure")
		return false, apperrors.NewAppError(apperrors.CodeInternalError, "failed to delete token", err)
	}
	metrics.RecordAuthOperation("logout", "success")
	return deleted, nil
}

// CheckUsernameAvailable reports whether the username is free to register
func (s *Service) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if strings.TrimSpace(username) == "" {
		return false, apperrors.NewAppError(apperrors.CodeMissingParameter, "A username must be provided.", nil)
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return false, apperrors.NewAppError(apperrors.CodeInternalError, "failed to check username", err)
	}
	metrics.RecordAuthOperation("check_username", "success")
	return existing == nil, nil
}

// Profile returns the account for userID, or UNAUTHENTICATED when it no
// longer exists
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeInternalError, "failed to load profile", err)
	}
	if user == nil {
		return nil, apperrors.NewAppError(apperrors.CodeUnauthenticated, "Account no longer exists.", nil)
	}
	return user, nil
}

// ActiveToken returns the account's registered token, or "" when none
func (s *Service) ActiveToken(ctx context.Context, userID string) (string, error) {
	return s.tokens.Get(ctx, userID)
}

func (s *Service) issueToken(ctx context.Context, user *User) (*AuthResult, error) {
	expiresIn := int(s.jwtCfg.ExpiresIn.Seconds())
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":      user.UserID,
		"username": user.Username,
		"exp":      now.Add(s.jwtCfg.ExpiresIn).Unix(),
		"iat":      now.Unix(),
		"iss":      s.jwtCfg.Issuer,
		"aud":      s.jwtCfg.Audience,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeInternalError, "failed to sign token", err)
	}

	// Rotating the registry entry invalidates any previously issued token
	if err := s.tokens.Save(ctx, user.UserID, tokenString, s.jwtCfg.ExpiresIn); err != nil {
		return nil, apperrors.NewAppError(apperrors.CodeInternalError, "failed to register token", err)
	}

	return &AuthResult{
		User:      user,
		Token:     tokenString,
		ExpiresIn: expiresIn,
	}, nil
}
