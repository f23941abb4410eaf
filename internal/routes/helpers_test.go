package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/storefront-labs/storefront-api/internal/accounts"
	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/session"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*accounts.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*accounts.User)}
}

func (m *memUsers) GetByID(ctx context.Context, userID string) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) Create(ctx context.Context, user *accounts.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return nil
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemTokens() *memTokens {
	return &memTokens{tokens: make(map[string]string)}
}

func (m *memTokens) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = token
	return nil
}

func (m *memTokens) Get(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[userID], nil
}

func (m *memTokens) Delete(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.tokens[userID]
	delete(m.tokens, userID)
	return existed, nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*session.Data
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]*session.Data)}
}

func (m *memSessions) Get(ctx context.Context, sessionID string) (*session.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *data
	return &copied, nil
}

func (m *memSessions) Save(ctx context.Context, sessionID string, data *session.Data, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *data
	m.sessions[sessionID] = &copied
	return nil
}

func (m *memSessions) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:    "test-secret",
		Issuer:    "storefront-api",
		Audience:  "storefront-web",
		ExpiresIn: time.Hour,
	}
}

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		PagePasswordMinLength: 6,
		APIPasswordMinLength:  8,
	}
}

func testSessionManager() (*session.Manager, *memSessions) {
	store := newMemSessions()
	cfg := &config.SessionConfig{CookieName: "storefront_session", TTL: time.Hour}
	return session.NewManager(store, cfg, testLogger()), store
}

// catalogStub builds an httptest server and a catalog config pointing at it
func catalogStub(t *testing.T, handler http.HandlerFunc) *config.CatalogConfig {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &config.CatalogConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "storefront_session" {
			return c
		}
	}
	return nil
}
