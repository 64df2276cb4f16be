package models

import (
	"time"

	"github.com/google/uuid"
)

// UserAuth holds the credentials row of a user.
type UserAuth struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserProfile is the public profile attached to an account.
type UserProfile struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email,omitempty" db:"email"`
	FullName     string    `json:"full_name" db:"full_name"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	Bio          *string   `json:"bio,omitempty" db:"bio"`
	AvatarURL    *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	CityCode     *string   `json:"city_code,omitempty" db:"city_code"`
	DistrictCode *string   `json:"district_code,omitempty" db:"district_code"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateProfileParams carries the fields to change; nil means unchanged.
type UpdateProfileParams struct {
	FullName     *string `json:"full_name"`
	Phone        *string `json:"phone"`
	Bio          *string `json:"bio"`
	AvatarURL    *string `json:"avatar_url"`
	CityCode     *string `json:"city_code"`
	DistrictCode *string `json:"district_code"`
}

// Empty reports whether no field is set.
func (p UpdateProfileParams) Empty() bool {
	return p.FullName == nil && p.Phone == nil && p.Bio == nil &&
		p.AvatarURL == nil && p.CityCode == nil && p.DistrictCode == nil
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name"`
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
