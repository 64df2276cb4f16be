// Package session holds the per-client state of the app: who the caller is,
// whether their writes are durable, and their favorites and profile.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/favorites"
	"github.com/FACorreiaa/gurume/internal/app/middleware"
	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/pkg/cache"
)

const contextKey = "gurume_session"

// Shown for signed-in authors that have not filled in their profile.
const (
	communityName  = "Gurume Community"
	communityTitle = "Community Member"
)

// Identity is what a request says about its caller.
type Identity struct {
	UserID        uuid.UUID
	Email         string
	Authenticated bool
	DeviceID      string
}

// Key identifies the session of an identity. Callers with neither an account
// nor a device id get an empty key and an unshared session.
func (i Identity) Key() string {
	switch {
	case i.Authenticated:
		return "user:" + i.UserID.String()
	case i.DeviceID != "":
		return "device:" + i.DeviceID
	}
	return ""
}

// IdentityFromContext reads the identity set by the auth middleware and the
// device header.
func IdentityFromContext(c *gin.Context) Identity {
	id := Identity{DeviceID: middleware.DeviceID(c)}
	if userID, ok := middleware.AuthenticatedUserID(c); ok {
		id.UserID = userID
		id.Authenticated = true
		id.Email = c.GetString(middleware.UserEmailKey)
	}
	return id
}

// Session is the state of one signed-in user or anonymous device. Demo
// sessions never write to the database.
type Session struct {
	Key           string
	UserID        uuid.UUID
	Email         string
	DeviceID      string
	Authenticated bool
	Demo          bool
	Favorites     *favorites.Set
	StartedAt     time.Time

	mu      sync.RWMutex
	profile *models.UserProfile
}

func newSession(id Identity, demo bool) *Session {
	return &Session{
		Key:           id.Key(),
		UserID:        id.UserID,
		Email:         id.Email,
		DeviceID:      id.DeviceID,
		Authenticated: id.Authenticated,
		Demo:          demo || !id.Authenticated,
		Favorites:     favorites.NewSet(),
		StartedAt:     time.Now(),
	}
}

// AuthorID is the author id routes created in this session carry.
func (s *Session) AuthorID() string {
	switch {
	case s.Authenticated:
		return s.UserID.String()
	case s.DeviceID != "":
		return "device-" + s.DeviceID
	}
	return models.GuestAuthor.ID
}

// Author is the public author record for this session.
func (s *Session) Author() models.Author {
	if !s.Authenticated {
		a := models.GuestAuthor
		a.ID = s.AuthorID()
		return a
	}
	a := models.Author{
		ID:         s.AuthorID(),
		Name:       communityName,
		Title:      communityTitle,
		AvatarSeed: s.AuthorID(),
	}
	if p, ok := s.Profile(); ok {
		if p.FullName != "" {
			a.Name = p.FullName
		}
		if p.Bio != nil && *p.Bio != "" {
			a.Title = *p.Bio
		}
		if p.AvatarURL != nil {
			a.AvatarURL = *p.AvatarURL
		}
	}
	return a
}

// FavoritesOwner describes this session to the favorites service.
func (s *Session) FavoritesOwner() favorites.Owner {
	return favorites.Owner{UserID: s.UserID, Durable: !s.Demo, Set: s.Favorites}
}

func (s *Session) Profile() (*models.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.profile != nil
}

func (s *Session) SetProfile(p *models.UserProfile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

// HydrateFunc loads persisted state into a new session.
type HydrateFunc func(ctx context.Context, s *Session) error

// Manager creates sessions on first use, keeps them for a TTL after the last
// request and ends them on logout.
type Manager struct {
	sessions *cache.UnifiedCache[*Session]
	demo     bool
	hydrate  []HydrateFunc
	logger   *zap.Logger
}

// NewManager creates a manager. In demo mode every session is a demo session.
func NewManager(ttl time.Duration, demo bool, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: cache.NewUnifiedCache[*Session](ttl, "sessions", logger),
		demo:     demo,
		logger:   logger,
	}
}

// OnBegin registers fn to run for every new durable session.
func (m *Manager) OnBegin(fn HydrateFunc) {
	m.hydrate = append(m.hydrate, fn)
}

// Begin returns the live session for id, creating it if needed. A session
// whose hydration failed is returned but not kept, so the next request
// retries.
func (m *Manager) Begin(ctx context.Context, id Identity) *Session {
	key := id.Key()
	if key != "" {
		if s, ok := m.sessions.Get(key); ok {
			m.sessions.Touch(key)
			return s
		}
	}

	s := newSession(id, m.demo)
	if key == "" {
		return s
	}

	if !s.Demo {
		for _, fn := range m.hydrate {
			if err := fn(ctx, s); err != nil {
				m.logger.Warn("Session hydration failed", zap.String("session", key), zap.Error(err))
				return s
			}
		}
	}

	if !m.sessions.Add(key, s) {
		if existing, ok := m.sessions.Get(key); ok {
			return existing
		}
		m.sessions.Set(key, s)
	}
	m.logger.Debug("Session started", zap.String("session", key), zap.Bool("demo", s.Demo))
	return s
}

// Get returns a live session without creating one.
func (m *Manager) Get(key string) (*Session, bool) {
	return m.sessions.Get(key)
}

// End tears the session down. Later requests start a fresh one.
func (m *Manager) End(key string) {
	if key == "" {
		return
	}
	m.sessions.Delete(key)
	m.logger.Debug("Session ended", zap.String("session", key))
}

// Active is the number of sessions currently held.
func (m *Manager) Active() int {
	return m.sessions.Size()
}

// Middleware attaches the caller's session to the request. It must run
// after the JWT middleware.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKey, m.Begin(c.Request.Context(), IdentityFromContext(c)))
		c.Next()
	}
}

// FromContext returns the request's session, or a throwaway demo session
// when none was attached.
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return newSession(IdentityFromContext(c), true)
}
