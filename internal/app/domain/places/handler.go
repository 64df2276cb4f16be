package places

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

type Handler struct {
	searcher *GoogleSearcher
	logger   *zap.Logger
}

func NewHandler(searcher *GoogleSearcher, logger *zap.Logger) *Handler {
	return &Handler{searcher: searcher, logger: logger}
}

// SearchPlaces godoc
// @Router /api/places/search [get]
func (h *Handler) SearchPlaces(c *gin.Context) {
	var opts models.PlaceSearchOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	if opts.Query == "" {
		handlers.RespondError(c, h.logger, fmt.Errorf("%w: q is required", models.ErrValidation), "search places")
		return
	}
	c.JSON(http.StatusOK, h.searcher.Search(c.Request.Context(), opts))
}

func floatQuery(c *gin.Context, name string) (float64, error) {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", models.ErrInvalidNumber, name)
	}
	return v, nil
}

// NearbyPlaces godoc
// @Router /api/places/nearby [get]
func (h *Handler) NearbyPlaces(c *gin.Context) {
	lat, err := floatQuery(c, "lat")
	if err != nil {
		handlers.RespondError(c, h.logger, err, "nearby places")
		return
	}
	lng, err := floatQuery(c, "lng")
	if err != nil {
		handlers.RespondError(c, h.logger, err, "nearby places")
		return
	}
	radius, _ := strconv.Atoi(c.Query("radius"))
	c.JSON(http.StatusOK, h.searcher.Nearby(c.Request.Context(), lat, lng, radius, c.Query("type")))
}

func (h *Handler) PlaceDetails(c *gin.Context) {
	p, ok := h.searcher.Details(c.Request.Context(), c.Param("placeId"))
	if !ok {
		handlers.RespondError(c, h.logger, fmt.Errorf("place %q: %w", c.Param("placeId"), models.ErrNotFound), "place details")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Autocomplete(c *gin.Context) {
	c.JSON(http.StatusOK, h.searcher.Autocomplete(c.Request.Context(), c.Query("input"), c.Query("session")))
}
