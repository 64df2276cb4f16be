package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/session"
	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/middleware"
	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
)

const authCookie = "auth_token"

type AuthHandlers struct {
	authService AuthService
	sessions    *session.Manager
	logger      *zap.Logger
}

func NewAuthHandlers(authService AuthService, sessions *session.Manager, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
	}
}

// setCookie mirrors the access token into the auth_token cookie for browser
// clients. A nil pair clears it.
func setCookie(c *gin.Context, pair *TokenPair) {
	token, maxAge := "", -1
	if pair != nil {
		token, maxAge = pair.AccessToken, int(time.Until(pair.ExpiresAt).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookie, token, maxAge, "/", "", c.Request.TLS != nil, true)
}

func countAuth(c *gin.Context, action string, err error) {
	metrics.Inc(c.Request.Context(), metrics.Get().AuthRequestsTotal,
		attribute.String("action", action), attribute.Bool("success", err == nil))
}

// Register godoc
// @Router /api/auth/register [post]
func (h *AuthHandlers) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	userID, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	countAuth(c, "register", err)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "register")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": userID})
}

// Login issues tokens and starts the durable session of the user.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	countAuth(c, "login", err)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "login")
		return
	}

	h.sessions.Begin(c.Request.Context(), session.Identity{
		UserID:        pair.UserID,
		Email:         pair.Email,
		Authenticated: true,
		DeviceID:      middleware.DeviceID(c),
	})
	setCookie(c, pair)
	c.JSON(http.StatusOK, pair)
}

// Logout revokes the refresh token, if given, and ends the caller's session.
func (h *AuthHandlers) Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handlers.BadRequest(c, err)
			return
		}
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		handlers.RespondError(c, h.logger, err, "logout")
		return
	}

	h.sessions.End(session.FromContext(c).Key)
	setCookie(c, nil)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	pair, err := h.authService.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handlers.RespondError(c, h.logger, err, "refresh")
		return
	}
	setCookie(c, pair)
	c.JSON(http.StatusOK, pair)
}

// ChangePassword requires an authenticated caller.
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.BadRequest(c, err)
		return
	}

	sess := session.FromContext(c)
	if !sess.Authenticated {
		handlers.RespondError(c, h.logger, models.ErrUnauthenticated, "change password")
		return
	}
	if err := h.authService.UpdatePassword(c.Request.Context(), sess.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		handlers.RespondError(c, h.logger, err, "change password")
		return
	}
	c.Status(http.StatusNoContent)
}

// Verify describes the caller as seen by the server.
func (h *AuthHandlers) Verify(c *gin.Context) {
	sess := session.FromContext(c)
	c.JSON(http.StatusOK, VerifyResponse{
		UserID:        sess.AuthorID(),
		Email:         sess.Email,
		Authenticated: sess.Authenticated,
		Demo:          sess.Demo,
	})
}
