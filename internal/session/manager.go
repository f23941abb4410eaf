package session

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/storefront-labs/storefront-api/internal/config"
	"github.com/storefront-labs/storefront-api/internal/metrics"
)

const (
	localsDataKey = "session_data"
	localsIDKey   = "session_id"

	// Flash levels
	LevelSuccess = "success"
	LevelError   = "error"
)

// Manager binds the session store to the request cycle: it loads the
// session named by the cookie, exposes it through fiber Locals, and writes
// mutations back to the store.
type Manager struct {
	store  Store
	cfg    *config.SessionConfig
	logger *logrus.Logger
}

// NewManager creates a session manager
func NewManager(store Store, cfg *config.SessionConfig, logger *logrus.Logger) *Manager {
	return &Manager{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Middleware loads (or creates) the session for every request
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(m.cfg.CookieName)
		if sessionID == "" {
			sessionID = uuid.New().String()
			c.Cookie(&fiber.Cookie{
				Name:     m.cfg.CookieName,
				Value:    sessionID,
				HTTPOnly: true,
				Secure:   m.cfg.Secure,
				SameSite: "Lax",
				MaxAge:   int(m.cfg.TTL.Seconds()),
			})
		}

		data, err := m.store.Get(c.Context(), sessionID)
		if err != nil {
			// A broken session store must not take the page down
			m.logger.WithError(err).Warn("Failed to load session")
			metrics.RecordSessionOperation("load", "failure")
			data = &Data{}
		} else if data == nil {
			data = &Data{}
		}

		c.Locals(localsIDKey, sessionID)
		c.Locals(localsDataKey, data)

		return c.Next()
	}
}

// Current returns the request's session data
func (m *Manager) Current(c *fiber.Ctx) *Data {
	if data, ok := c.Locals(localsDataKey).(*Data); ok {
		return data
	}
	return &Data{}
}

// Login binds an identity and token to the session
func (m *Manager) Login(c *fiber.Ctx, userID, username, token string) error {
	data := m.Current(c)
	data.UserID = userID
	data.Username = username
	data.Token = token
	return m.persist(c, data)
}

// Logout clears the identity and token but keeps the session alive so the
// goodbye flash survives the redirect
func (m *Manager) Logout(c *fiber.Ctx) error {
	data := m.Current(c)
	data.UserID = ""
	data.Username = ""
	data.Token = ""
	return m.persist(c, data)
}

// AddFlash queues a one-shot message for the next rendered page
func (m *Manager) AddFlash(c *fiber.Ctx, level, message string) error {
	data := m.Current(c)
	data.Flashes = append(data.Flashes, Flash{Level: level, Message: message})
	return m.persist(c, data)
}

// PopFlashes drains and returns the pending flash messages
func (m *Manager) PopFlashes(c *fiber.Ctx) []Flash {
	data := m.Current(c)
	flashes := data.Flashes
	if len(flashes) == 0 {
		return nil
	}
	data.Flashes = nil
	if err := m.persist(c, data); err != nil {
		m.logger.WithError(err).Warn("Failed to clear flashes")
	}
	return flashes
}

// Destroy removes the session entirely
func (m *Manager) Destroy(c *fiber.Ctx) error {
	sessionID, _ := c.Locals(localsIDKey).(string)
	if sessionID == "" {
		return nil
	}
	c.Locals(localsDataKey, &Data{})
	if err := m.store.Delete(c.Context(), sessionID); err != nil {
		metrics.RecordSessionOperation("destroy", "failure")
		return err
	}
	metrics.RecordSessionOperation("destroy", "success")
	return nil
}

func (m *Manager) persist(c *fiber.Ctx, data *Data) error {
	sessionID, _ := c.Locals(localsIDKey).(string)
	if sessionID == "" {
		return nil
	}
	if err := m.store.Save(c.Context(), sessionID, data, m.cfg.TTL); err != nil {
		metrics.RecordSessionOperation("save", "failure")
		return err
	}
	metrics.RecordSessionOperation("save", "success")
	return nil
}
