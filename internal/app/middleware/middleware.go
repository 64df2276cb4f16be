package middleware

import (
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
)

const (
	UserIDKey        = "user_id"
	UserEmailKey     = "email"
	AuthenticatedKey = "authenticated"
	DeviceIDHeader   = "X-Device-ID"
	anonymousUser    = "anonymous"
)

// CORSMiddleware allows browser and mobile clients from any origin.
func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding",
			"Authorization", "Cache-Control", "X-Requested-With", DeviceIDHeader},
		ExposeHeaders: []string{"Content-Length", "X-Request-Id"},
		MaxAge:        12 * time.Hour,
	})
}

// SecurityMiddleware adds security headers for a JSON API.
func SecurityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Writer.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}

// OTELGinMiddleware returns the OpenTelemetry middleware for Gin
func OTELGinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// MetricsMiddleware counts requests and records their duration by route
// template and status.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		}
		m := metrics.Get()
		metrics.Inc(c.Request.Context(), m.HTTPRequestsTotal, attrs...)
		metrics.Observe(c.Request.Context(), m.HTTPRequestDuration, time.Since(start), attrs...)
	}
}

// GetUserIDFromContext returns the authenticated user id or "anonymous".
func GetUserIDFromContext(c *gin.Context) string {
	if userID, exists := c.Get(UserIDKey); exists {
		if idStr, ok := userID.(string); ok && idStr != "" {
			return idStr
		}
	}
	return anonymousUser
}

// AuthenticatedUserID parses the user id set by the JWT middleware.
func AuthenticatedUserID(c *gin.Context) (uuid.UUID, bool) {
	if !c.GetBool(AuthenticatedKey) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(GetUserIDFromContext(c))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// DeviceID identifies an anonymous client across requests.
func DeviceID(c *gin.Context) string {
	return c.GetHeader(DeviceIDHeader)
}

// ViewerID is the author id the caller creates routes as: the user id when
// signed in, otherwise a device scoped guest id.
func ViewerID(c *gin.Context) string {
	if id, ok := AuthenticatedUserID(c); ok {
		return id.String()
	}
	if d := DeviceID(c); d != "" {
		return "device-" + d
	}
	return models.GuestAuthor.ID
}
