package catalog

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/middleware"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

type Handler struct {
	store  *Store
	logger *zap.Logger
}

func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) notFound(c *gin.Context, kind, id string) {
	handlers.RespondError(c, h.logger, fmt.Errorf("%s %q: %w", kind, id, models.ErrNotFound), "get "+kind)
}

// ListCities godoc
// @Router /api/cities [get]
func (h *Handler) ListCities(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot().Cities())
}

func (h *Handler) GetCity(c *gin.Context) {
	id := c.Param("id")
	city, ok := h.store.Snapshot().GetCityByID(id)
	if !ok {
		h.notFound(c, "city", id)
		return
	}
	c.JSON(http.StatusOK, city)
}

func (h *Handler) GetCityBySlug(c *gin.Context) {
	s := c.Param("slug")
	city, ok := h.store.Snapshot().GetCityBySlug(s)
	if !ok {
		h.notFound(c, "city", s)
		return
	}
	c.JSON(http.StatusOK, city)
}

func (h *Handler) ListCityDistricts(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot().GetDistrictsByCityID(c.Param("id")))
}

func (h *Handler) ListCityPlaces(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot().GetPlacesByCityID(c.Param("id")))
}

// ListCityRoutes returns the routes of a city the caller may see.
func (h *Handler) ListCityRoutes(c *gin.Context) {
	viewer := middleware.ViewerID(c)
	routes := h.store.Snapshot().GetRoutesByCityID(c.Param("id"))
	visible := make([]models.Route, 0, len(routes))
	for _, r := range routes {
		if r.VisibleTo(viewer) {
			visible = append(visible, r)
		}
	}
	c.JSON(http.StatusOK, visible)
}

func (h *Handler) ListDistrictPlaces(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot().GetPlacesByDistrictID(c.Param("id")))
}

func (h *Handler) GetPlace(c *gin.Context) {
	id := c.Param("id")
	place, ok := h.store.Snapshot().GetPlaceByID(id)
	if !ok {
		h.notFound(c, "place", id)
		return
	}
	c.JSON(http.StatusOK, place)
}
