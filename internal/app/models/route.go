package models

import (
	"strings"
	"time"
)

// ModerationStatus gates public visibility of user-submitted routes.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	}
	return false
}

// Author is the public face of a route creator.
type Author struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Title      string `json:"title,omitempty" yaml:"title"`
	AvatarSeed string `json:"avatar_seed,omitempty" yaml:"avatar_seed"`
	AvatarURL  string `json:"avatar_url,omitempty" yaml:"avatar_url"`
}

// GuestAuthor is used for routes created without an account.
var GuestAuthor = Author{ID: "guest", Name: "Guest", AvatarSeed: "guest"}

// RouteStop is one ordered stop of a route. A stop either references a
// catalog place by PlaceID or carries its own inline place fields; the same
// shape is used for reading, creating and persisting stops.
type RouteStop struct {
	ID           string       `json:"id" yaml:"id"`
	Order        int          `json:"order" yaml:"order"`
	PlaceID      *string      `json:"place_id,omitempty" yaml:"place_id"`
	PlaceName    string       `json:"place_name" yaml:"place_name"`
	PlaceSummary string       `json:"place_summary,omitempty" yaml:"place_summary"`
	Specialties  []string     `json:"specialties,omitempty" yaml:"specialties"`
	Coordinates  *Coordinates `json:"coordinates,omitempty" yaml:"coordinates"`
	PriceLevel   PriceLevel   `json:"price_level,omitempty" yaml:"price_level"`
	ImageURL     string       `json:"image_url,omitempty" yaml:"image_url"`
	TastingNotes []string     `json:"tasting_notes,omitempty" yaml:"tasting_notes"`
	Highlight    string       `json:"highlight,omitempty" yaml:"highlight"`
	DwellMinutes *int         `json:"dwell_minutes,omitempty" yaml:"dwell_minutes"`
}

// PlaceLookup resolves catalog places by id.
type PlaceLookup interface {
	GetPlaceByID(id string) (Place, bool)
}

// DisplayName prefers the catalog place name and falls back to the inline name.
func (s RouteStop) DisplayName(places PlaceLookup) string {
	if s.PlaceID != nil && places != nil {
		if p, ok := places.GetPlaceByID(*s.PlaceID); ok && strings.TrimSpace(p.Name) != "" {
			return p.Name
		}
	}
	return strings.TrimSpace(s.PlaceName)
}

// Route is an ordered, themed tasting itinerary within a city.
type Route struct {
	ID               string           `json:"id" yaml:"id"`
	CityID           string           `json:"city_id" yaml:"city_id"`
	DistrictIDs      []string         `json:"district_ids" yaml:"district_ids"`
	Title            string           `json:"title" yaml:"title"`
	Summary          string           `json:"summary" yaml:"summary"`
	Description      string           `json:"description,omitempty" yaml:"description"`
	CoverImage       string           `json:"cover_image" yaml:"cover_image"`
	DurationMinutes  *int             `json:"duration_minutes,omitempty" yaml:"duration_minutes"`
	DistanceKm       *float64         `json:"distance_km,omitempty" yaml:"distance_km"`
	Tags             []string         `json:"tags" yaml:"tags"`
	AverageRating    float64          `json:"average_rating" yaml:"average_rating"`
	RatingCount      int              `json:"rating_count" yaml:"rating_count"`
	Author           Author           `json:"author" yaml:"author"`
	Stops            []RouteStop      `json:"stops" yaml:"stops"`
	IsPublished      bool             `json:"is_published" yaml:"is_published"`
	ModerationStatus ModerationStatus `json:"moderation_status" yaml:"moderation_status"`
	FavoriteCount    int              `json:"favorite_count" yaml:"favorite_count"`
	IsUserGenerated  bool             `json:"is_user_generated" yaml:"is_user_generated"`
	CreatedAt        time.Time        `json:"created_at" yaml:"created_at"`
}

// VisibleTo reports whether the route can be listed for a viewer. Published
// routes are public; unpublished ones are only shown to their author.
func (r Route) VisibleTo(authorID string) bool {
	return r.IsPublished || (authorID != "" && r.Author.ID == authorID)
}

// RouteDraft is the unvalidated input of the route creation form. Numeric
// fields arrive as free text and are parsed by the route builder.
type RouteDraft struct {
	Title           string      `json:"title"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description"`
	CityID          *string     `json:"city_id"`
	DistrictID      *string     `json:"district_id"`
	CoverImage      string      `json:"cover_image"`
	DurationMinutes string      `json:"duration_minutes"`
	DistanceKm      string      `json:"distance_km"`
	Tags            []string    `json:"tags"`
	Stops           []StopDraft `json:"stops"`
}

// StopDraft is one unvalidated stop of a RouteDraft.
type StopDraft struct {
	PlaceID      string   `json:"place_id"`
	PlaceName    string   `json:"place_name"`
	PlaceSummary string   `json:"place_summary"`
	Specialties  []string `json:"specialties"`
	Latitude     string   `json:"latitude"`
	Longitude    string   `json:"longitude"`
	PriceLevel   string   `json:"price_level"`
	ImageURL     string   `json:"image_url"`
	TastingNotes []string `json:"tasting_notes"`
	Highlight    string   `json:"highlight"`
	DwellMinutes string   `json:"dwell_minutes"`
}

// RoutePatch edits the descriptive fields of an existing route. Nil fields
// are left unchanged. Stops, city and district are fixed once created.
type RoutePatch struct {
	Title       *string   `json:"title"`
	Summary     *string   `json:"summary"`
	Description *string   `json:"description"`
	CoverImage  *string   `json:"cover_image"`
	Tags        *[]string `json:"tags"`
}

// RouteSort orders route listings.
type RouteSort string

const (
	RouteSortRating  RouteSort = "rating"
	RouteSortNewest  RouteSort = "newest"
	RouteSortPopular RouteSort = "popular"
)

// RouteFilter narrows route listings.
type RouteFilter struct {
	Query     string    `form:"q"`
	CityID    string    `form:"city_id"`
	MinRating float64   `form:"min_rating"`
	Sort      RouteSort `form:"sort"`
	Limit     int       `form:"limit"`
}
