package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/pkg/config"
)

const minPasswordLength = 8

// Ensure implementation satisfies the interface
var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService defines the business logic contract.
type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (uuid.UUID, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserAuth, error)
}

// AuthServiceImpl provides the implementation for AuthService. A nil
// repository means accounts are unavailable and every call fails with
// ErrNotConfigured.
type AuthServiceImpl struct {
	logger *zap.Logger
	repo   AuthRepo
	cfg    config.AuthConfig
	jwt    *JWTService
	now    func() time.Time
}

// NewAuthService creates a new authentication service instance.
func NewAuthService(repo AuthRepo, cfg config.AuthConfig, logger *zap.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
		jwt:    NewJWTService(),
		now:    time.Now,
	}
}

// JWTConfig is the token configuration shared by the service and the middleware.
func (s *AuthServiceImpl) JWTConfig(optional bool) JWTConfig {
	return JWTConfig{
		SecretKey:       s.cfg.JWTSecret,
		TokenExpiration: s.accessTTL(),
		Issuer:          s.cfg.Issuer,
		Audience:        s.cfg.Audience,
		Logger:          s.logger,
		Optional:        optional,
	}
}

func (s *AuthServiceImpl) available() error {
	if s.repo == nil {
		return fmt.Errorf("%w: accounts are disabled", models.ErrNotConfigured)
	}
	return nil
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email", models.ErrValidation)
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", models.ErrValidation, minPasswordLength)
	}
	return nil
}

// Register creates the account and its placeholder profile.
func (s *AuthServiceImpl) Register(ctx context.Context, email, password, fullName string) (uuid.UUID, error) {
	l := s.logger.With(zap.String("method", "Register"), zap.String("email", email))
	l.Debug("Attempting registration")

	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("email", email),
	))
	defer span.End()

	if err := s.available(); err != nil {
		span.SetStatus(codes.Error, "not configured")
		return uuid.Nil, err
	}
	if err := validateCredentials(email, password); err != nil {
		span.SetStatus(codes.Error, "invalid credentials")
		return uuid.Nil, err
	}

	hashedPassword, err := s.jwt.HashPassword(password)
	if err != nil {
		l.Error("Failed to hash password", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password hashing failed")
		return uuid.Nil, fmt.Errorf("could not process password: %w", err)
	}

	userID, err := s.repo.Register(ctx, email, hashedPassword, fullName)
	if err != nil {
		l.Warn("Repository registration failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository registration failed")
		return uuid.Nil, fmt.Errorf("registration failed: %w", err)
	}

	l.Info("Registration successful", zap.String("userID", userID.String()))
	span.SetStatus(codes.Ok, "User registered")
	return userID, nil
}

// Login validates credentials, generates tokens and stores the refresh token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	l := s.logger.With(zap.String("method", "Login"), zap.String("email", email))
	l.Debug("Attempting login")

	if err := s.available(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		l.Warn("GetUserByEmail failed", zap.Error(err))
		// Don't reveal if user exists or password is wrong
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	if !s.jwt.CheckPassword(user.Password, password) {
		l.Warn("Password comparison failed", zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("invalid credentials: %w", models.ErrUnauthenticated)
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		l.Error("Failed to issue tokens", zap.String("userID", user.ID.String()), zap.Error(err))
		return nil, err
	}

	l.Info("Login successful")
	return pair, nil
}

// RefreshSession validates the refresh token, issues a new pair and rotates
// the refresh token.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := s.logger.With(zap.String("method", "RefreshSession"))
	l.Debug("Attempting token refresh")

	if err := s.available(); err != nil {
		return nil, err
	}

	userID, err := s.repo.ValidateRefreshTokenAndGetUserID(ctx, refreshToken)
	if err != nil {
		l.Warn("Refresh token validation failed", zap.Error(err))
		return nil, fmt.Errorf("invalid or expired refresh token: %w", err)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		l.Error("Failed to get user after refresh token validation", zap.String("userID", userID.String()), zap.Error(err))
		if invErr := s.repo.InvalidateRefreshToken(ctx, refreshToken); invErr != nil {
			l.Warn("Failed to invalidate orphaned refresh token", zap.Error(invErr))
		}
		return nil, fmt.Errorf("retrieving user during refresh: %w", models.ErrUnauthenticated)
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.Warn("Failed to invalidate old refresh token during rotation", zap.String("userID", user.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to invalidate old refresh token: %w", err)
	}

	l.Info("Token refresh successful", zap.String("userID", user.ID.String()))
	return pair, nil
}

// Logout invalidates the provided refresh token. An empty token is a no-op.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	l := s.logger.With(zap.String("method", "Logout"))
	if s.repo == nil || refreshToken == "" {
		return nil
	}
	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.Error("Failed to invalidate refresh token", zap.Error(err))
		return fmt.Errorf("logout failed: %w", err)
	}
	l.Info("Logout successful (token invalidated)")
	return nil
}

// UpdatePassword verifies the old password, stores the new hash and revokes
// every refresh token of the user.
func (s *AuthServiceImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	l := s.logger.With(zap.String("method", "UpdatePassword"), zap.String("userID", userID.String()))
	l.Debug("Attempting password update")

	if err := s.available(); err != nil {
		return err
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must have at least %d characters", models.ErrValidation, minPasswordLength)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if !s.jwt.CheckPassword(user.Password, oldPassword) {
		l.Warn("Old password verification failed")
		return fmt.Errorf("incorrect old password: %w", models.ErrUnauthenticated)
	}

	hashed, err := s.jwt.HashPassword(newPassword)
	if err != nil {
		l.Error("Failed to hash new password", zap.Error(err))
		return fmt.Errorf("could not process new password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hashed); err != nil {
		l.Error("Repository password update failed", zap.Error(err))
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.repo.InvalidateAllUserRefreshTokens(ctx, userID); err != nil {
		l.Warn("Failed to invalidate refresh tokens after password update", zap.Error(err))
		return err
	}

	l.Info("Password updated successfully")
	return nil
}

func (s *AuthServiceImpl) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserAuth, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}

func (s *AuthServiceImpl) issue(ctx context.Context, user *models.UserAuth) (*TokenPair, error) {
	accessToken, expiresAt, err := s.jwt.GenerateToken(s.JWTConfig(false), user.ID.String(), user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.NewString()
	if err := s.repo.StoreRefreshToken(ctx, user.ID, refreshToken, s.now().Add(s.refreshTTL())); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
		UserID:       user.ID,
		Email:        user.Email,
	}, nil
}

func (s *AuthServiceImpl) accessTTL() time.Duration {
	if s.cfg.AccessTokenTTL > 0 {
		return s.cfg.AccessTokenTTL
	}
	return 15 * time.Minute
}

func (s *AuthServiceImpl) refreshTTL() time.Duration {
	if s.cfg.RefreshTokenTTL > 0 {
		return s.cfg.RefreshTokenTTL
	}
	return 7 * 24 * time.Hour
}
