package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/pkg/config"
	"github.com/FACorreiaa/gurume/internal/routes"
)

func demoRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	app, err := routes.NewApp(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	return SetupRouter(app, "gurume-test", zap.NewNop())
}

func TestSetupRouter(t *testing.T) {
	r := demoRouter(t)

	t.Run("security headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("cors preflight allows the device header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/routes", nil)
		req.Header.Set("Origin", "http://localhost:8081")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "X-Device-ID")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("invalid bearer token stays anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cities", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("panics become the generic error", func(t *testing.T) {
		r.GET("/boom", func(*gin.Context) { panic("kaboom") })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "internal_error", body["error"])
		assert.Equal(t, models.UserMessage(assert.AnError), body["message"])
	})
}
