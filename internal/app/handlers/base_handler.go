package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrAlreadyRated, http.StatusConflict, "already_rated"},
	{models.ErrValidation, http.StatusBadRequest, "validation_error"},
	{models.ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{models.ErrForbidden, http.StatusForbidden, "forbidden"},
	{models.ErrConflict, http.StatusConflict, "conflict"},
	{models.ErrNotConfigured, http.StatusServiceUnavailable, "configuration_error"},
	{models.ErrPersistence, http.StatusServiceUnavailable, "persistence_error"},
}

// RespondError writes err as a JSON error body with a status derived from
// its kind. Unknown errors become a 500 with the generic message.
func RespondError(c *gin.Context, logger *zap.Logger, err error, operation string) {
	status, code := http.StatusInternalServerError, "internal_error"
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			status, code = e.status, e.code
			break
		}
	}

	if errors.Is(err, models.ErrPersistence) {
		metrics.Inc(c.Request.Context(), metrics.Get().DBQueryErrorsTotal, attribute.String("operation", operation))
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("operation", operation), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.String("operation", operation), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":   code,
		"message": models.UserMessage(err),
	})
}

// BadRequest reports a malformed request body or query.
func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "bad_request",
		"message": err.Error(),
	})
}
