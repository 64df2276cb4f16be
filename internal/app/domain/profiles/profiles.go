package profiles

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/session"
	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

// Hydrate loads the profile of a new durable session, creating the
// placeholder row on first sign-in.
func (s *Service) Hydrate(ctx context.Context, sess *session.Session) error {
	p, err := s.GetOrCreate(ctx, sess.UserID, sess.Email)
	if err != nil {
		return err
	}
	sess.SetProfile(&p)
	return nil
}

type ProfilesHandler struct {
	profileService *Service
	logger         *zap.Logger
}

func NewProfilesHandler(profileService *Service, logger *zap.Logger) *ProfilesHandler {
	return &ProfilesHandler{
		profileService: profileService,
		logger:         logger,
	}
}

func signedIn(c *gin.Context) (*session.Session, error) {
	sess := session.FromContext(c)
	if !sess.Authenticated {
		return nil, fmt.Errorf("%w: sign in to see your profile", models.ErrUnauthenticated)
	}
	return sess, nil
}

// GetProfile godoc
// @Router /api/profile [get]
func (h *ProfilesHandler) GetProfile(c *gin.Context) {
	sess, err := signedIn(c)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "get profile")
		return
	}
	if p, ok := sess.Profile(); ok {
		c.JSON(http.StatusOK, p)
		return
	}

	p, err := h.profileService.GetOrCreate(c.Request.Context(), sess.UserID, sess.Email)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "get profile")
		return
	}
	sess.SetProfile(&p)
	c.JSON(http.StatusOK, p)
}

// UpdateProfile godoc
// @Router /api/profile [patch]
func (h *ProfilesHandler) UpdateProfile(c *gin.Context) {
	sess, err := signedIn(c)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "update profile")
		return
	}

	var params models.UpdateProfileParams
	if err := c.ShouldBindJSON(&params); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	p, err := h.profileService.Update(c.Request.Context(), sess.UserID, sess.Email, params)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "update profile")
		return
	}
	sess.SetProfile(&p)
	c.JSON(http.StatusOK, p)
}
