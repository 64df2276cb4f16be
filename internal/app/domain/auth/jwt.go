package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/middleware"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	SecretKey       string
	TokenExpiration time.Duration
	Issuer          string
	Audience        string
	Logger          *zap.Logger
	Optional        bool // If true, missing/invalid tokens won't block the request
}

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func NewJWTService() *JWTService {
	return &JWTService{}
}

type JWTService struct{}

// GenerateToken signs an access token for a user.
func (s *JWTService) GenerateToken(config JWTConfig, userID, email string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(config.TokenExpiration)
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    config.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(config.SecretKey))
	if err != nil {
		if config.Logger != nil {
			config.Logger.Error("Failed to sign token", zap.Error(err))
		}
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken parses and validates a JWT token
func (s *JWTService) ValidateToken(config JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.SecretKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token", models.ErrUnauthenticated)
	}

	return claims, nil
}

// HashPassword hashes a password using bcrypt
func (s *JWTService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a hashed password with a plaintext password
func (s *JWTService) CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(authCookie); err == nil && cookie != "" {
		return cookie
	}
	return ""
}

// JWTAuthMiddleware authenticates the request from the Authorization header,
// falling back to the auth_token cookie. In optional mode a missing or
// invalid token leaves the request anonymous.
func JWTAuthMiddleware(config JWTConfig) gin.HandlerFunc {
	service := NewJWTService()
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		anonymous := func(err error) {
			if config.Optional {
				c.Set(middleware.UserIDKey, "anonymous")
				c.Set(middleware.AuthenticatedKey, false)
				c.Next()
				return
			}
			handlers.RespondError(c, config.Logger, err, "authenticate")
		}

		tokenString := bearerToken(c)
		if tokenString == "" {
			anonymous(fmt.Errorf("%w: missing token", models.ErrUnauthenticated))
			return
		}

		claims, err := service.ValidateToken(config, tokenString)
		if err != nil {
			anonymous(err)
			return
		}

		c.Set(middleware.UserIDKey, claims.UserID)
		c.Set(middleware.UserEmailKey, claims.Email)
		c.Set(middleware.AuthenticatedKey, true)
		c.Next()
	}
}

// RequireAuth rejects requests the JWT middleware left anonymous.
func RequireAuth(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.AuthenticatedUserID(c); !ok {
			handlers.RespondError(c, logger, fmt.Errorf("%w: sign in required", models.ErrUnauthenticated), "require auth")
			return
		}
		c.Next()
	}
}
