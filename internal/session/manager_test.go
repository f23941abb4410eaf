package session

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-api/internal/config"
)

type memStore struct {
	mu       sync.Mutex
	sessions map[string]*Data
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*Data)}
}

func (m *memStore) Get(ctx context.Context, sessionID string) (*Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *data
	return &copied, nil
}

func (m *memStore) Save(ctx context.Context, sessionID string, data *Data, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *data
	m.sessions[sessionID] = &copied
	return nil
}

func (m *memStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func newTestManager() (*Manager, *memStore) {
	store := newMemStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	manager := NewManager(store, &config.SessionConfig{
		CookieName: "storefront_session",
		TTL:        time.Hour,
	}, logger)
	return manager, store
}

func TestMiddleware_CreatesSessionCookie(t *testing.T) {
	manager, _ := newTestManager()

	app := fiber.New()
	app.Use(manager.Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		assert.False(t, manager.Current(c).Authenticated())
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "storefront_session", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestLoginLogout_RoundTrip(t *testing.T) {
	manager, _ := newTestManager()

	app := fiber.New()
	app.Use(manager.Middleware())
	app.Post("/login", func(c *fiber.Ctx) error {
		require.NoError(t, manager.Login(c, "user-1", "alice", "tok-abc"))
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/me", func(c *fiber.Ctx) error {
		data := manager.Current(c)
		if !data.Authenticated() {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(data.Username)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		require.NoError(t, manager.Logout(c))
		return c.SendStatus(fiber.StatusOK)
	})

	// Login establishes the session
	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	cookie := resp.Cookies()[0]

	req := httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Logout clears the identity
	req = httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(cookie)
	_, err = app.Test(req)
	require.NoError(t, err)

	req = httptest.NewRequest("GET", "/me", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestFlashes_DrainOnce(t *testing.T) {
	manager, _ := newTestManager()

	app := fiber.New()
	app.Use(manager.Middleware())
	app.Post("/flash", func(c *fiber.Ctx) error {
		require.NoError(t, manager.AddFlash(c, LevelSuccess, "Product created"))
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/page", func(c *fiber.Ctx) error {
		flashes := manager.PopFlashes(c)
		return c.JSON(flashes)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/flash", nil))
	require.NoError(t, err)
	cookie := resp.Cookies()[0]

	req := httptest.NewRequest("GET", "/page", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	body := make([]byte, 1024)
	n, _ := resp.Body.Read(body)
	assert.Contains(t, string(body[:n]), "Product created")

	// Second read: flash already consumed
	req = httptest.NewRequest("GET", "/page", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	n, _ = resp.Body.Read(body)
	assert.Equal(t, "null", string(body[:n]))
}
