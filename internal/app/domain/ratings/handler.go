package ratings

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/session"
	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

// deviceNamespace derives stable rater ids for anonymous devices.
var deviceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://gurume.app/devices"))

// RaterFromSession identifies the session's user as a rater. Anonymous
// devices rate under an id derived from the device id.
func RaterFromSession(s *session.Session) (Rater, error) {
	switch {
	case s.Authenticated:
		return Rater{UserID: s.UserID, Durable: !s.Demo, AuthorID: s.AuthorID()}, nil
	case s.DeviceID != "":
		return Rater{UserID: uuid.NewSHA1(deviceNamespace, []byte(s.DeviceID)), AuthorID: s.AuthorID()}, nil
	}
	return Rater{}, fmt.Errorf("rating: %w", models.ErrUnauthenticated)
}

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) rater(c *gin.Context) (Rater, bool) {
	rater, err := RaterFromSession(session.FromContext(c))
	if err != nil {
		handlers.RespondError(c, h.logger, err, "identify rater")
		return Rater{}, false
	}
	return rater, true
}

func (h *Handler) ratingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handlers.RespondError(c, h.logger, fmt.Errorf("rating %q: %w", c.Param("id"), models.ErrNotFound), "parse rating id")
		return uuid.Nil, false
	}
	return id, true
}

// ListRouteRatings godoc
// @Router /api/routes/{id}/ratings [get]
func (h *Handler) ListRouteRatings(c *gin.Context) {
	ratings, err := h.service.GetRatingsByRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, h.logger, err, "list ratings")
		return
	}
	c.JSON(http.StatusOK, ratings)
}

func (h *Handler) GetMyRating(c *gin.Context) {
	rater, ok := h.rater(c)
	if !ok {
		return
	}
	rating, err := h.service.GetUserRatingForRoute(c.Request.Context(), c.Param("id"), rater)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "get own rating")
		return
	}
	c.JSON(http.StatusOK, rating)
}

// CreateRating godoc
// @Router /api/routes/{id}/ratings [post]
func (h *Handler) CreateRating(c *gin.Context) {
	rater, ok := h.rater(c)
	if !ok {
		return
	}
	var input models.CreateRatingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, err)
		return
	}
	input.RouteID = c.Param("id")

	result, err := h.service.CreateRating(c.Request.Context(), input, rater)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "create rating")
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) UpdateRating(c *gin.Context) {
	rater, ok := h.rater(c)
	if !ok {
		return
	}
	id, ok := h.ratingID(c)
	if !ok {
		return
	}
	var input models.UpdateRatingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	result, err := h.service.UpdateRating(c.Request.Context(), id, input, rater)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "update rating")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) DeleteRating(c *gin.Context) {
	rater, ok := h.rater(c)
	if !ok {
		return
	}
	id, ok := h.ratingID(c)
	if !ok {
		return
	}

	summary, err := h.service.DeleteRating(c.Request.Context(), id, rater)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "delete rating")
		return
	}
	c.JSON(http.StatusOK, models.RatingResult{Summary: summary})
}
