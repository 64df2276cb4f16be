package models

import (
	"time"

	"github.com/google/uuid"
)

// RouteRating is one user's score for one route.
type RouteRating struct {
	ID        uuid.UUID  `json:"id"`
	RouteID   string     `json:"route_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Score     float64    `json:"score"`
	Comment   string     `json:"comment,omitempty"`
	VisitedAt *time.Time `json:"visited_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateRatingInput is the payload for rating a route.
type CreateRatingInput struct {
	RouteID   string     `json:"route_id"`
	Score     float64    `json:"score" binding:"required"`
	Comment   string     `json:"comment"`
	VisitedAt *time.Time `json:"visited_at"`
}

// UpdateRatingInput changes an existing rating.
type UpdateRatingInput struct {
	Score   float64 `json:"score" binding:"required"`
	Comment *string `json:"comment"`
}

// RatingSummary is the denormalized aggregate stored on a route.
type RatingSummary struct {
	RouteID       string  `json:"route_id"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

// RatingResult is returned by rating writes.
type RatingResult struct {
	Rating  *RouteRating  `json:"rating,omitempty"`
	Summary RatingSummary `json:"summary"`
}
