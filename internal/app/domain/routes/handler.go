package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/session"
	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

// RouteView is a route as shown to one caller.
type RouteView struct {
	models.Route
	IsFavorite bool `json:"is_favorite"`
}

// Views decorates routes with the caller's favorite flags.
func Views(routes []models.Route, sess *session.Session) []RouteView {
	out := make([]RouteView, len(routes))
	for i, r := range routes {
		out[i] = RouteView{Route: r, IsFavorite: sess.Favorites.Has(r.ID)}
	}
	return out
}

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// CallerFromSession describes the session's user to the route builder.
func CallerFromSession(s *session.Session) Caller {
	return Caller{Author: s.Author(), Authenticated: s.Authenticated, Demo: s.Demo}
}

// ListRoutes godoc
// @Router /api/routes [get]
func (h *Handler) ListRoutes(c *gin.Context) {
	var filter models.RouteFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	routes, err := h.service.ListRoutes(c.Request.Context(), filter)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "list routes")
		return
	}
	c.JSON(http.StatusOK, Views(routes, session.FromContext(c)))
}

func (h *Handler) GetRoute(c *gin.Context) {
	sess := session.FromContext(c)
	route, err := h.service.GetRoute(c.Request.Context(), c.Param("id"), sess.AuthorID())
	if err != nil {
		handlers.RespondError(c, h.logger, err, "get route")
		return
	}
	c.JSON(http.StatusOK, RouteView{Route: route, IsFavorite: sess.Favorites.Has(route.ID)})
}

// CreateRoute godoc
// @Router /api/routes [post]
func (h *Handler) CreateRoute(c *gin.Context) {
	var draft models.RouteDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	route, err := h.service.CreateRoute(c.Request.Context(), draft, CallerFromSession(session.FromContext(c)))
	if err != nil {
		handlers.RespondError(c, h.logger, err, "create route")
		return
	}
	c.JSON(http.StatusCreated, RouteView{Route: route})
}

func (h *Handler) DeleteRoute(c *gin.Context) {
	sess := session.FromContext(c)
	if err := h.service.DeleteRoute(c.Request.Context(), c.Param("id"), sess.AuthorID()); err != nil {
		handlers.RespondError(c, h.logger, err, "delete route")
		return
	}
	c.Status(http.StatusNoContent)
}

// MyRoutes godoc
// @Router /api/routes/mine [get]
func (h *Handler) MyRoutes(c *gin.Context) {
	sess := session.FromContext(c)
	routes, err := h.service.ListByAuthor(c.Request.Context(), sess.AuthorID())
	if err != nil {
		handlers.RespondError(c, h.logger, err, "list own routes")
		return
	}
	c.JSON(http.StatusOK, Views(routes, sess))
}

// UpdateRoute godoc
// @Router /api/routes/{id} [patch]
func (h *Handler) UpdateRoute(c *gin.Context) {
	var patch models.RoutePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	sess := session.FromContext(c)
	route, err := h.service.UpdateRoute(c.Request.Context(), c.Param("id"), sess.AuthorID(), patch)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "update route")
		return
	}
	c.JSON(http.StatusOK, RouteView{Route: route, IsFavorite: sess.Favorites.Has(route.ID)})
}
