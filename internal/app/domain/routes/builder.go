package routes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/pkg/geo"
)

// Geography is the part of the catalog the builder resolves drafts against.
type Geography interface {
	models.PlaceLookup
	GetDistrictByID(id string) (models.District, bool)
}

// Caller describes who is creating a route.
type Caller struct {
	Author        models.Author
	Authenticated bool
	Demo          bool
}

// CanPublish reports whether routes by this caller are stored durably.
func (c Caller) CanPublish() bool {
	return c.Authenticated && !c.Demo
}

// Builder turns drafts into routes. It performs no I/O.
type Builder struct {
	RequireModeration bool
	Now               func() time.Time
}

func NewBuilder(requireModeration bool) *Builder {
	return &Builder{RequireModeration: requireModeration, Now: time.Now}
}

// Build validates draft and produces a route ready to persist. The city is
// checked first, then the title, then the stops. IDs are left for the
// caller to assign.
func (b *Builder) Build(draft models.RouteDraft, caller Caller, geoData Geography) (models.Route, error) {
	if draft.CityID == nil || strings.TrimSpace(*draft.CityID) == "" {
		return models.Route{}, models.ErrMissingCity
	}
	cityID := strings.TrimSpace(*draft.CityID)

	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return models.Route{}, models.ErrMissingTitle
	}

	stops, err := buildStops(draft.Stops, geoData)
	if err != nil {
		return models.Route{}, err
	}
	if len(stops) == 0 {
		return models.Route{}, models.ErrNoStops
	}

	duration, err := parseOptionalInt("duration_minutes", draft.DurationMinutes)
	if err != nil {
		return models.Route{}, err
	}
	distance, err := parseOptionalFloat("distance_km", draft.DistanceKm)
	if err != nil {
		return models.Route{}, err
	}
	if distance == nil {
		distance = estimateDistance(stops)
	}

	districtIDs := []string{}
	if draft.DistrictID != nil && strings.TrimSpace(*draft.DistrictID) != "" {
		districtID := strings.TrimSpace(*draft.DistrictID)
		if geoData != nil {
			if d, ok := geoData.GetDistrictByID(districtID); ok && d.CityID != cityID {
				return models.Route{}, fmt.Errorf("%w: district %q is not in city %q", models.ErrValidation, districtID, cityID)
			}
		}
		districtIDs = append(districtIDs, districtID)
	}

	author := caller.Author
	if author.ID == "" {
		author = models.GuestAuthor
	}

	published := caller.CanPublish() && !b.RequireModeration
	status := models.ModerationPending
	if published {
		status = models.ModerationApproved
	}

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	return models.Route{
		CityID:           cityID,
		DistrictIDs:      districtIDs,
		Title:            title,
		Summary:          strings.TrimSpace(draft.Summary),
		Description:      strings.TrimSpace(draft.Description),
		CoverImage:       strings.TrimSpace(draft.CoverImage),
		DurationMinutes:  duration,
		DistanceKm:       distance,
		Tags:             dedupeTags(draft.Tags),
		Author:           author,
		Stops:            stops,
		IsPublished:      published,
		ModerationStatus: status,
		IsUserGenerated:  true,
		CreatedAt:        now().UTC(),
	}, nil
}

// Patch applies an edit to route with the same normalization Build uses.
// A title can be changed but not cleared.
func (b *Builder) Patch(route models.Route, patch models.RoutePatch) (models.Route, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return models.Route{}, models.ErrMissingTitle
		}
		route.Title = title
	}
	if patch.Summary != nil {
		route.Summary = strings.TrimSpace(*patch.Summary)
	}
	if patch.Description != nil {
		route.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.CoverImage != nil {
		route.CoverImage = strings.TrimSpace(*patch.CoverImage)
	}
	if patch.Tags != nil {
		route.Tags = dedupeTags(*patch.Tags)
	}
	return route, nil
}

func buildStops(drafts []models.StopDraft, geoData Geography) ([]models.RouteStop, error) {
	stops := make([]models.RouteStop, 0, len(drafts))
	for _, d := range drafts {
		stop := models.RouteStop{
			PlaceName:    strings.TrimSpace(d.PlaceName),
			PlaceSummary: strings.TrimSpace(d.PlaceSummary),
			Specialties:  dedupeTags(d.Specialties),
			ImageURL:     strings.TrimSpace(d.ImageURL),
			TastingNotes: dedupeTags(d.TastingNotes),
			Highlight:    strings.TrimSpace(d.Highlight),
		}

		if id := strings.TrimSpace(d.PlaceID); id != "" {
			stop.PlaceID = &id
			if geoData != nil {
				if p, ok := geoData.GetPlaceByID(id); ok {
					if stop.PlaceName == "" {
						stop.PlaceName = strings.TrimSpace(p.Name)
					}
					if stop.PlaceSummary == "" {
						stop.PlaceSummary = p.Summary
					}
					if stop.ImageURL == "" {
						stop.ImageURL = p.HeroImage
					}
					stop.PriceLevel = p.PriceLevel
					if geo.HasValidCoordinates(p.Coordinates.Latitude, p.Coordinates.Longitude) {
						c := p.Coordinates
						stop.Coordinates = &c
					}
				}
			}
		}

		if stop.PlaceName == "" {
			continue
		}

		if d.PriceLevel != "" {
			level, err := models.ParsePriceLevel(d.PriceLevel)
			if err != nil {
				return nil, err
			}
			stop.PriceLevel = level
		}

		dwell, err := parseOptionalInt("dwell_minutes", d.DwellMinutes)
		if err != nil {
			return nil, err
		}
		stop.DwellMinutes = dwell

		coords, err := parseCoordinates(d.Latitude, d.Longitude)
		if err != nil {
			return nil, err
		}
		if coords != nil {
			stop.Coordinates = coords
		}

		stop.Order = len(stops) + 1
		stops = append(stops, stop)
	}
	return stops, nil
}

func parseCoordinates(latText, lngText string) (*models.Coordinates, error) {
	lat, err := parseOptionalNumber("latitude", latText)
	if err != nil {
		return nil, err
	}
	lng, err := parseOptionalNumber("longitude", lngText)
	if err != nil {
		return nil, err
	}
	if lat == nil && lng == nil {
		return nil, nil
	}
	if lat == nil || lng == nil {
		return nil, fmt.Errorf("%w: latitude and longitude must be given together", models.ErrValidation)
	}
	if !geo.InRange(*lat, *lng) {
		return nil, fmt.Errorf("%w: coordinates out of range", models.ErrValidation)
	}
	return &models.Coordinates{Latitude: *lat, Longitude: *lng}, nil
}

func parseOptionalNumber(field, text string) (*float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s %q", models.ErrInvalidNumber, field, text)
	}
	return &v, nil
}

func parseOptionalFloat(field, text string) (*float64, error) {
	v, err := parseOptionalNumber(field, text)
	if err != nil || v == nil {
		return nil, err
	}
	if *v < 0 {
		return nil, fmt.Errorf("%w: %s must not be negative", models.ErrValidation, field)
	}
	return v, nil
}

func parseOptionalInt(field, text string) (*int, error) {
	v, err := parseOptionalFloat(field, text)
	if err != nil || v == nil {
		return nil, err
	}
	if *v != math.Trunc(*v) {
		return nil, fmt.Errorf("%w: %s must be a whole number", models.ErrInvalidNumber, field)
	}
	// Stored as INTEGER.
	if *v > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %s is too large", models.ErrValidation, field)
	}
	n := int(*v)
	return &n, nil
}

func estimateDistance(stops []models.RouteStop) *float64 {
	points := make([]models.Coordinates, 0, len(stops))
	for _, s := range stops {
		if s.Coordinates != nil {
			points = append(points, *s.Coordinates)
		}
	}
	km, ok := geo.PathDistanceKm(points)
	if !ok {
		return nil
	}
	return &km
}

// dedupeTags trims entries, skips blanks and keeps the first occurrence of
// each exact value.
func dedupeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
