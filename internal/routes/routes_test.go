package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/auth"
	"github.com/FACorreiaa/gurume/internal/app/middleware"
	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/pkg/config"
)

type client struct {
	t        *testing.T
	engine   *gin.Engine
	deviceID string
}

func newDemoClient(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	require.True(t, cfg.DemoMode())

	app, err := NewApp(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)

	r := gin.New()
	r.Use(auth.JWTAuthMiddleware(app.Auth.JWTConfig(true)))
	r.Use(app.Sessions.Middleware())
	Setup(r, app, zap.NewNop())
	return &client{t: t, engine: r, deviceID: "device-1"}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.deviceID != "" {
		req.Header.Set(middleware.DeviceIDHeader, c.deviceID)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	c := newDemoClient(t)
	w := c.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["demo"])
}

func TestCatalogEndpoints(t *testing.T) {
	c := newDemoClient(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"cities", "/api/cities", http.StatusOK},
		{"city by id", "/api/cities/city-istanbul", http.StatusOK},
		{"city by slug", "/api/cities/slug/istanbul", http.StatusOK},
		{"city districts", "/api/cities/city-istanbul/districts", http.StatusOK},
		{"city places", "/api/cities/city-istanbul/places", http.StatusOK},
		{"city routes", "/api/cities/city-istanbul/routes", http.StatusOK},
		{"catalog place", "/api/places/place-istanbul-1", http.StatusOK},
		{"unknown city", "/api/cities/city-atlantis", http.StatusNotFound},
		{"unknown place", "/api/places/nope", http.StatusNotFound},
		{"unknown route", "/api/routes/nope", http.StatusNotFound},
		{"unknown path", "/api/nothing-here", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := c.do(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusNotFound {
				body := decode[map[string]string](t, w)
				assert.Equal(t, "not_found", body["error"])
				assert.Equal(t, models.UserMessage(models.ErrNotFound), body["message"])
			}
		})
	}
}

func TestPlaceSearchWithoutKeyServesPlaceholders(t *testing.T) {
	c := newDemoClient(t)

	w := c.do(http.MethodGet, "/api/places/search?q=Simit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[[]models.PlaceResult](t, w)
	require.Len(t, results, 3)
	assert.Equal(t, "Simit Restoran", results[0].Name)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/places/search", nil).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/places/nearby?lat=x&lng=1", nil).Code)
}

func TestDemoRouteLifecycle(t *testing.T) {
	c := newDemoClient(t)

	draft := models.RouteDraft{
		Title:  "Kadıköy akşamı",
		CityID: ptr("city-istanbul"),
		Stops:  []models.StopDraft{{PlaceID: "place-istanbul-1"}},
	}
	w := c.do(http.MethodPost, "/api/routes", draft)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Route](t, w)
	assert.Contains(t, created.ID, "local-")
	assert.False(t, created.IsPublished)
	assert.Equal(t, "device-device-1", created.Author.ID)

	t.Run("author sees the unpublished route", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/routes/"+created.ID, nil).Code)
	})

	t.Run("other devices do not", func(t *testing.T) {
		other := &client{t: t, engine: c.engine, deviceID: "device-2"}
		assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, "/api/routes/"+created.ID, nil).Code)
		assert.Equal(t, http.StatusForbidden, other.do(http.MethodDelete, "/api/routes/"+created.ID, nil).Code)
		assert.Equal(t, http.StatusNotFound, other.do(http.MethodPatch, "/api/routes/"+created.ID, models.RoutePatch{Title: ptr("x")}).Code)
		assert.Empty(t, decode[[]models.Route](t, other.do(http.MethodGet, "/api/routes/mine", nil)))
	})

	t.Run("author lists own pending routes", func(t *testing.T) {
		w := c.do(http.MethodGet, "/api/routes/mine", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		mine := decode[[]models.Route](t, w)
		require.Len(t, mine, 1)
		assert.Equal(t, created.ID, mine[0].ID)

		anonymous := &client{t: t, engine: c.engine}
		assert.Equal(t, http.StatusUnauthorized, anonymous.do(http.MethodGet, "/api/routes/mine", nil).Code)
	})

	t.Run("author edits the route", func(t *testing.T) {
		w := c.do(http.MethodPatch, "/api/routes/"+created.ID, models.RoutePatch{Title: ptr(" Moda akşamı ")})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "Moda akşamı", decode[models.Route](t, w).Title)

		assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPatch, "/api/routes/"+created.ID, models.RoutePatch{Title: ptr(" ")}).Code)
	})

	t.Run("rating", func(t *testing.T) {
		path := "/api/routes/" + created.ID + "/ratings"
		w := c.do(http.MethodPost, path, models.CreateRatingInput{Score: 4.5})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		result := decode[models.RatingResult](t, w)
		require.NotNil(t, result.Rating)
		assert.Equal(t, 1, result.Summary.RatingCount)
		assert.Equal(t, 4.5, result.Summary.AverageRating)

		assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, path, models.CreateRatingInput{Score: 3}).Code)
		assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, path, models.CreateRatingInput{Score: 4.2}).Code)

		w = c.do(http.MethodPut, "/api/ratings/"+result.Rating.ID.String(), models.UpdateRatingInput{Score: 2})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, 2.0, decode[models.RatingResult](t, w).Summary.AverageRating)

		assert.Equal(t, http.StatusNotFound, c.do(http.MethodPut, "/api/ratings/not-a-uuid", models.UpdateRatingInput{Score: 2}).Code)
	})

	t.Run("favorites", func(t *testing.T) {
		w := c.do(http.MethodPost, "/api/favorites/"+created.ID+"/toggle", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode[map[string]any](t, w)["is_favorite"])

		favs := decode[[]models.Route](t, c.do(http.MethodGet, "/api/favorites", nil))
		require.Len(t, favs, 1)
		assert.Equal(t, created.ID, favs[0].ID)

		assert.Equal(t, http.StatusOK, c.do(http.MethodPut, "/api/favorites/"+created.ID, nil).Code)
		assert.Len(t, decode[[]models.Route](t, c.do(http.MethodGet, "/api/favorites", nil)), 1, "saving twice keeps one entry")

		assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/api/favorites/missing/toggle", nil).Code)
	})

	t.Run("author deletes", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/routes/"+created.ID, nil).Code)
		assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/routes/"+created.ID, nil).Code)
	})
}

func TestDemoAccountsAreDisabled(t *testing.T) {
	c := newDemoClient(t)

	w := c.do(http.MethodPost, "/api/auth/register", models.RegisterRequest{Email: "a@b.co", Password: "longenough"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/profile", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/uploads/avatars", nil).Code)
}

func ptr[T any](v T) *T { return &v }
