package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/middleware"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

func TestIdentity_Key(t *testing.T) {
	userID := uuid.New()
	tests := []struct {
		name string
		id   Identity
		want string
	}{
		{"signed in", Identity{UserID: userID, Authenticated: true, DeviceID: "d1"}, "user:" + userID.String()},
		{"device", Identity{DeviceID: "d1"}, "device:d1"},
		{"nobody", Identity{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.Key())
		})
	}
}

func TestSession_Author(t *testing.T) {
	userID := uuid.New()

	t.Run("anonymous device", func(t *testing.T) {
		s := newSession(Identity{DeviceID: "abc"}, false)
		a := s.Author()
		assert.Equal(t, "device-abc", a.ID)
		assert.Equal(t, models.GuestAuthor.Name, a.Name)
		assert.True(t, s.Demo)
	})

	t.Run("signed in without profile", func(t *testing.T) {
		s := newSession(Identity{UserID: userID, Email: "ada@example.com", Authenticated: true}, false)
		a := s.Author()
		assert.Equal(t, userID.String(), a.ID)
		assert.Equal(t, communityName, a.Name)
		assert.NotContains(t, a.Name, "@")
		assert.False(t, s.Demo)
	})

	t.Run("profile overrides defaults", func(t *testing.T) {
		s := newSession(Identity{UserID: userID, Authenticated: true}, false)
		bio, avatar := "Street food hunter", "https://cdn.example.com/a.png"
		s.SetProfile(&models.UserProfile{ID: userID, FullName: "Ada Y.", Bio: &bio, AvatarURL: &avatar})
		a := s.Author()
		assert.Equal(t, "Ada Y.", a.Name)
		assert.Equal(t, bio, a.Title)
		assert.Equal(t, avatar, a.AvatarURL)
	})

	t.Run("demo manager forces demo", func(t *testing.T) {
		s := newSession(Identity{UserID: userID, Authenticated: true}, true)
		assert.True(t, s.Demo)
		assert.False(t, s.FavoritesOwner().Durable)
	})
}

func TestManager_Begin(t *testing.T) {
	ctx := context.Background()

	t.Run("reuses live sessions", func(t *testing.T) {
		m := NewManager(time.Minute, false, zap.NewNop())
		id := Identity{DeviceID: "d1"}
		first := m.Begin(ctx, id)
		first.Favorites.Toggle("r1")

		second := m.Begin(ctx, id)
		assert.Same(t, first, second)
		assert.True(t, second.Favorites.Has("r1"))
		assert.Equal(t, 1, m.Active())
	})

	t.Run("callers without a key are not shared", func(t *testing.T) {
		m := NewManager(time.Minute, false, zap.NewNop())
		a := m.Begin(ctx, Identity{})
		b := m.Begin(ctx, Identity{})
		assert.NotSame(t, a, b)
		assert.Zero(t, m.Active())
	})

	t.Run("hydrates durable sessions once", func(t *testing.T) {
		m := NewManager(time.Minute, false, zap.NewNop())
		calls := 0
		m.OnBegin(func(_ context.Context, s *Session) error {
			calls++
			s.Favorites.Replace([]string{"r9"})
			return nil
		})
		id := Identity{UserID: uuid.New(), Authenticated: true}
		s := m.Begin(ctx, id)
		m.Begin(ctx, id)
		assert.Equal(t, 1, calls)
		assert.True(t, s.Favorites.Has("r9"))
	})

	t.Run("demo sessions skip hydration", func(t *testing.T) {
		m := NewManager(time.Minute, false, zap.NewNop())
		m.OnBegin(func(context.Context, *Session) error {
			t.Fatal("hydrate called for a demo session")
			return nil
		})
		m.Begin(ctx, Identity{DeviceID: "d2"})
	})

	t.Run("failed hydration is retried", func(t *testing.T) {
		m := NewManager(time.Minute, false, zap.NewNop())
		fail := true
		m.OnBegin(func(context.Context, *Session) error {
			if fail {
				return errors.New("db down")
			}
			return nil
		})
		id := Identity{UserID: uuid.New(), Authenticated: true}

		s := m.Begin(ctx, id)
		require.NotNil(t, s)
		assert.Zero(t, m.Active())

		fail = false
		m.Begin(ctx, id)
		assert.Equal(t, 1, m.Active())
	})
}

func TestManager_End(t *testing.T) {
	m := NewManager(time.Minute, false, zap.NewNop())
	id := Identity{DeviceID: "d1"}
	first := m.Begin(context.Background(), id)

	m.End(id.Key())
	m.End("")
	_, ok := m.Get(id.Key())
	assert.False(t, ok)
	assert.NotSame(t, first, m.Begin(context.Background(), id))
}

func TestManager_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(time.Minute, false, zap.NewNop())
	userID := uuid.New()

	var got *Session
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID.String())
		c.Set(middleware.AuthenticatedKey, true)
		c.Next()
	}, m.Middleware())
	r.GET("/", func(c *gin.Context) {
		got = FromContext(c)
		c.Status(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, got)
	assert.Equal(t, userID, got.UserID)
	assert.True(t, got.Authenticated)

	live, ok := m.Get("user:" + userID.String())
	require.True(t, ok)
	assert.Same(t, got, live)
}

func TestFromContext_Fallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set(middleware.DeviceIDHeader, "d7")

	s := FromContext(c)
	assert.True(t, s.Demo)
	assert.Equal(t, "device-d7", s.AuthorID())
}
