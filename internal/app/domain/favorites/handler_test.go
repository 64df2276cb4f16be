package favorites

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

type deviceCaller struct{ set *Set }

func (d deviceCaller) FavoritesOwner() Owner { return Owner{Set: d.set} }
func (d deviceCaller) AuthorID() string      { return "device-d1" }

func TestHandler_Favorites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	caller := deviceCaller{set: NewSet()}
	h := NewHandler(NewService(nil, newStore(t), zap.NewNop()), func(*gin.Context) Caller { return caller }, zap.NewNop())

	r := gin.New()
	r.GET("/api/favorites", h.ListFavorites)
	r.POST("/api/favorites/:routeId/toggle", h.ToggleFavorite)
	r.PUT("/api/favorites/:routeId", h.SaveFavorite)

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	w := do(http.MethodPost, "/api/favorites/r1/toggle")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"route_id":"r1","is_favorite":true}`, w.Body.String())

	w = do(http.MethodGet, "/api/favorites")
	require.Equal(t, http.StatusOK, w.Code)
	var routes []models.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, "r1", routes[0].ID)

	w = do(http.MethodPost, "/api/favorites/missing/toggle")
	assert.Equal(t, http.StatusNotFound, w.Code)

	for range 2 {
		w = do(http.MethodPut, "/api/favorites/r1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"route_id":"r1","is_favorite":true}`, w.Body.String())
	}
	assert.True(t, caller.set.Has("r1"))
	assert.Equal(t, http.StatusNotFound, do(http.MethodPut, "/api/favorites/missing").Code)

	caller.set.Toggle("gone")
	w = do(http.MethodPost, "/api/favorites/gone/toggle")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, caller.set.Has("gone"))
}
