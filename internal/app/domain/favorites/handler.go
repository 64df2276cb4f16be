package favorites

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

// Caller is what the handler needs from the request's session.
type Caller interface {
	FavoritesOwner() Owner
	AuthorID() string
}

type Handler struct {
	service *Service
	caller  func(c *gin.Context) Caller
	logger  *zap.Logger
}

// NewHandler builds the favorites endpoints. caller resolves the session of
// a request.
func NewHandler(service *Service, caller func(c *gin.Context) Caller, logger *zap.Logger) *Handler {
	return &Handler{service: service, caller: caller, logger: logger}
}

// ListFavorites godoc
// @Router /api/favorites [get]
func (h *Handler) ListFavorites(c *gin.Context) {
	caller := h.caller(c)
	c.JSON(http.StatusOK, h.service.List(caller.FavoritesOwner(), caller.AuthorID()))
}

// ToggleFavorite godoc
// @Router /api/favorites/{routeId}/toggle [post]
func (h *Handler) ToggleFavorite(c *gin.Context) {
	routeID := c.Param("routeId")
	owner := h.caller(c).FavoritesOwner()
	// Stale favorites can still be removed after their route is gone.
	if !owner.Set.Has(routeID) && !h.service.Known(routeID) {
		handlers.RespondError(c, h.logger, fmt.Errorf("route %q: %w", routeID, models.ErrNotFound), "toggle favorite")
		return
	}

	isFavorite, err := h.service.Toggle(c.Request.Context(), owner, routeID)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "toggle favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"route_id": routeID, "is_favorite": isFavorite})
}

// SaveFavorite godoc
// @Router /api/favorites/{routeId} [put]
func (h *Handler) SaveFavorite(c *gin.Context) {
	routeID := c.Param("routeId")
	if !h.service.Known(routeID) {
		handlers.RespondError(c, h.logger, fmt.Errorf("route %q: %w", routeID, models.ErrNotFound), "save favorite")
		return
	}
	if err := h.service.SaveRoute(c.Request.Context(), h.caller(c).FavoritesOwner(), routeID); err != nil {
		handlers.RespondError(c, h.logger, err, "save favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"route_id": routeID, "is_favorite": true})
}
