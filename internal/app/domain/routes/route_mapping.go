package routes

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

// RouteRow mirrors a row of the routes table.
type RouteRow struct {
	ID               string
	CreatedAt        time.Time
	UserID           *uuid.UUID
	AuthorName       string
	AuthorAvatarURL  *string
	Title            string
	Summary          string
	Description      *string
	CityID           string
	DistrictID       *string
	CoverImageURL    *string
	DurationMinutes  *int32
	DistanceKm       *float64
	Tags             []string
	AverageRating    float64
	RatingCount      int32
	FavoriteCount    int32
	IsPublished      bool
	ModerationStatus string
}

const routeColumns = `id, created_at, user_id, author_name, author_avatar_url, title, summary, description,
	city_id, district_id, cover_image_url, duration_minutes, distance_km, tags, average_rating,
	rating_count, favorite_count, is_published, moderation_status`

func (r *RouteRow) scanTargets() []any {
	return []any{&r.ID, &r.CreatedAt, &r.UserID, &r.AuthorName, &r.AuthorAvatarURL, &r.Title, &r.Summary,
		&r.Description, &r.CityID, &r.DistrictID, &r.CoverImageURL, &r.DurationMinutes, &r.DistanceKm,
		&r.Tags, &r.AverageRating, &r.RatingCount, &r.FavoriteCount, &r.IsPublished, &r.ModerationStatus}
}

// StopRow mirrors a row of the route_stops table.
type StopRow struct {
	ID           string
	RouteID      string
	OrderIndex   int32
	PlaceID      *string
	PlaceName    string
	Summary      *string
	Highlight    *string
	TastingNotes []string
	DwellMinutes *int32
	Latitude     *float64
	Longitude    *float64
	PriceLevel   *string
	Specialties  []string
	ImageURL     *string
}

const stopColumns = `id, route_id, order_index, place_id, place_name, summary, highlight, tasting_notes,
	dwell_minutes, latitude, longitude, price_level, specialties, image_url`

func (s *StopRow) scanTargets() []any {
	return []any{&s.ID, &s.RouteID, &s.OrderIndex, &s.PlaceID, &s.PlaceName, &s.Summary, &s.Highlight,
		&s.TastingNotes, &s.DwellMinutes, &s.Latitude, &s.Longitude, &s.PriceLevel, &s.Specialties, &s.ImageURL}
}

func (s StopRow) values() []any {
	return []any{s.ID, s.RouteID, s.OrderIndex, s.PlaceID, s.PlaceName, s.Summary, s.Highlight,
		s.TastingNotes, s.DwellMinutes, s.Latitude, s.Longitude, s.PriceLevel, s.Specialties, s.ImageURL}
}

// toRouteRow converts a route for storage. The author id must be a user id.
func toRouteRow(r models.Route) (RouteRow, error) {
	row := RouteRow{
		ID:               r.ID,
		CreatedAt:        r.CreatedAt,
		AuthorName:       r.Author.Name,
		AuthorAvatarURL:  optString(r.Author.AvatarURL),
		Title:            r.Title,
		Summary:          r.Summary,
		Description:      optString(r.Description),
		CityID:           r.CityID,
		CoverImageURL:    optString(r.CoverImage),
		DistanceKm:       r.DistanceKm,
		Tags:             nonNil(r.Tags),
		AverageRating:    r.AverageRating,
		RatingCount:      int32(r.RatingCount),
		FavoriteCount:    int32(r.FavoriteCount),
		IsPublished:      r.IsPublished,
		ModerationStatus: string(r.ModerationStatus),
	}
	if r.Author.ID != "" && r.Author.ID != models.GuestAuthor.ID {
		id, err := uuid.Parse(r.Author.ID)
		if err != nil {
			return RouteRow{}, fmt.Errorf("%w: author %q is not a user id", models.ErrValidation, r.Author.ID)
		}
		row.UserID = &id
	}
	if len(r.DistrictIDs) > 0 {
		row.DistrictID = optString(r.DistrictIDs[0])
	}
	if r.DurationMinutes != nil {
		d := int32(*r.DurationMinutes)
		row.DurationMinutes = &d
	}
	return row, nil
}

func fromRouteRow(row RouteRow, stops []StopRow) models.Route {
	author := models.Author{
		Name:      row.AuthorName,
		AvatarURL: deref(row.AuthorAvatarURL),
	}
	if row.UserID != nil {
		author.ID = row.UserID.String()
		author.AvatarSeed = author.ID
	} else {
		author = models.GuestAuthor
	}
	if author.Name == "" {
		author.Name = models.GuestAuthor.Name
	}

	r := models.Route{
		ID:               row.ID,
		CityID:           row.CityID,
		DistrictIDs:      []string{},
		Title:            row.Title,
		Summary:          row.Summary,
		Description:      deref(row.Description),
		CoverImage:       deref(row.CoverImageURL),
		DistanceKm:       row.DistanceKm,
		Tags:             nonNil(row.Tags),
		AverageRating:    row.AverageRating,
		RatingCount:      int(row.RatingCount),
		FavoriteCount:    int(row.FavoriteCount),
		Author:           author,
		IsPublished:      row.IsPublished,
		ModerationStatus: models.ModerationStatus(row.ModerationStatus),
		IsUserGenerated:  row.UserID != nil,
		CreatedAt:        row.CreatedAt,
		Stops:            make([]models.RouteStop, 0, len(stops)),
	}
	if row.DistrictID != nil && *row.DistrictID != "" {
		r.DistrictIDs = append(r.DistrictIDs, *row.DistrictID)
	}
	if row.DurationMinutes != nil {
		d := int(*row.DurationMinutes)
		r.DurationMinutes = &d
	}
	for _, s := range stops {
		r.Stops = append(r.Stops, fromStopRow(s))
	}
	return r
}

func toStopRow(routeID string, s models.RouteStop) StopRow {
	row := StopRow{
		ID:           s.ID,
		RouteID:      routeID,
		OrderIndex:   int32(s.Order),
		PlaceName:    s.PlaceName,
		Summary:      optString(s.PlaceSummary),
		Highlight:    optString(s.Highlight),
		TastingNotes: nonNil(s.TastingNotes),
		PriceLevel:   optString(string(s.PriceLevel)),
		Specialties:  nonNil(s.Specialties),
		ImageURL:     optString(s.ImageURL),
	}
	if s.PlaceID != nil {
		row.PlaceID = optString(*s.PlaceID)
	}
	if s.DwellMinutes != nil {
		d := int32(*s.DwellMinutes)
		row.DwellMinutes = &d
	}
	if s.Coordinates != nil {
		lat, lng := s.Coordinates.Latitude, s.Coordinates.Longitude
		row.Latitude, row.Longitude = &lat, &lng
	}
	return row
}

func fromStopRow(row StopRow) models.RouteStop {
	s := models.RouteStop{
		ID:           row.ID,
		Order:        int(row.OrderIndex),
		PlaceID:      row.PlaceID,
		PlaceName:    row.PlaceName,
		PlaceSummary: deref(row.Summary),
		Specialties:  nonNil(row.Specialties),
		PriceLevel:   models.PriceLevel(deref(row.PriceLevel)),
		ImageURL:     deref(row.ImageURL),
		TastingNotes: nonNil(row.TastingNotes),
		Highlight:    deref(row.Highlight),
	}
	if row.DwellMinutes != nil {
		d := int(*row.DwellMinutes)
		s.DwellMinutes = &d
	}
	if row.Latitude != nil && row.Longitude != nil {
		s.Coordinates = &models.Coordinates{Latitude: *row.Latitude, Longitude: *row.Longitude}
	}
	return s
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
