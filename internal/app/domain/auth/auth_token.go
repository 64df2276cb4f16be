package auth

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair is what a successful sign-in or refresh hands to the client.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// VerifyResponse describes the caller of GET /api/auth/verify.
type VerifyResponse struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Demo          bool   `json:"demo"`
}
