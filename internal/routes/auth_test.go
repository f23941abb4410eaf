package routes

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-api/internal/accounts"
	"github.com/storefront-labs/storefront-api/internal/middleware"
)

func newAuthTestApp(t *testing.T) (*fiber.App, *accounts.Service) {
	t.Helper()

	logger := testLogger()
	tokens := newMemTokens()
	svc := accounts.NewService(newMemUsers(), tokens, testJWTConfig(), logger)
	handler := NewAuthHandler(svc, testAuthConfig(), logger)

	authMw, err := middleware.NewAuthMiddleware(testJWTConfig(), tokens, logger)
	require.NoError(t, err)

	app := fiber.New()
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Get("/check-username", handler.CheckUsername)

	protected := api.Group("/auth", authMw.Authenticate(nil))
	protected.Post("/logout", handler.Logout)
	protected.Get("/profile", handler.Profile)

	return app, svc
}

func TestRegisterAPICreatesAccount(t *testing.T) {
	app, _ := newAuthTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":         "ada",
		"email":            "ada@example.com",
		"password":         "longenough",
		"confirm_password": "longenough",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])

	user, ok := body["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ada", user["username"])
	assert.NotContains(t, user, "password_hash")
}

func TestRegisterAPIRejectsShortPassword(t *testing.T) {
	app, _ := newAuthTestApp(t)

	// Seven characters passes the page threshold but not the API's
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":         "ada",
		"email":            "ada@example.com",
		"password":         "short77",
		"confirm_password": "short77",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])

	errs, ok := body["errors"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, errs, "password")
}

func TestRegisterAPIValidatesPayloadShape(t *testing.T) {
	app, _ := newAuthTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "ada",
		"email":    "not-an-email",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	errs, ok := body["errors"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Enter a valid email address.", errs["email"])
	assert.Equal(t, "This field is required.", errs["password"])
	assert.Equal(t, "This field is required.", errs["confirm_password"])
}

func TestRegisterAPIRejectsTakenUsername(t *testing.T) {
	app, svc := newAuthTestApp(t)

	_, err := svc.Register(context.Background(), &accounts.RegisterInput{
		Username:          "ada",
		Email:             "first@example.com",
		Password:          "longenough",
		Confirm:           "longenough",
		MinPasswordLength: 8,
	})
	require.NoError(t, err)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":         "ada",
		"email":            "second@example.com",
		"password":         "longenough",
		"confirm_password": "longenough",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "username")
}

func TestLoginAPIInvalidCredentials(t *testing.T) {
	app, _ := newAuthTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "nobody",
		"password": "whatever",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	errs := body["errors"].(map[string]interface{})
	assert.Equal(t, "Invalid username or password.", errs["non_field_errors"])
}

func TestLoginAPIReturnsToken(t *testing.T) {
	app, svc := newAuthTestApp(t)

	_, err := svc.Register(context.Background(), &accounts.RegisterInput{
		Username:          "ada",
		Email:             "ada@example.com",
		Password:          "longenough",
		Confirm:           "longenough",
		MinPasswordLength: 8,
	})
	require.NoError(t, err)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "ada",
		"password": "longenough",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
}

func TestLogoutAPISecondCallFails(t *testing.T) {
	app, svc := newAuthTestApp(t)

	result, err := svc.Register(context.Background(), &accounts.RegisterInput{
		Username:          "ada",
		Email:             "ada@example.com",
		Password:          "longenough",
		Confirm:           "longenough",
		MinPasswordLength: 8,
	})
	require.NoError(t, err)

	req := jsonRequest(t, http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])

	// The token was deleted, so the middleware now rejects it
	req = jsonRequest(t, http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileAPIReturnsCurrentUser(t *testing.T) {
	app, svc := newAuthTestApp(t)

	result, err := svc.Register(context.Background(), &accounts.RegisterInput{
		Username:          "ada",
		Email:             "ada@example.com",
		Password:          "longenough",
		Confirm:           "longenough",
		FirstName:         "Ada",
		MinPasswordLength: 8,
	})
	require.NoError(t, err)

	req := jsonRequest(t, http.MethodGet, "/api/v1/auth/profile", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ada", user["username"])
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "Ada", user["first_name"])
}

func TestProfileAPIRequiresToken(t *testing.T) {
	app, _ := newAuthTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/auth/profile", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckUsernameAPI(t *testing.T) {
	app, svc := newAuthTestApp(t)

	_, err := svc.Register(context.Background(), &accounts.RegisterInput{
		Username:          "taken",
		Email:             "taken@example.com",
		Password:          "longenough",
		Confirm:           "longenough",
		MinPasswordLength: 8,
	})
	require.NoError(t, err)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/v1/auth/check-username", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/v1/auth/check-username?username=taken", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["available"])

	resp, err = app.Test(jsonRequest(t, http.MethodGet, "/api/v1/auth/check-username?username=free", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["available"])
}
