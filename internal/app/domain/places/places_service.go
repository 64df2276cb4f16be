// Package places searches Google Places for venues to add to routes.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
	"github.com/FACorreiaa/gurume/internal/pkg/cache"
	"github.com/FACorreiaa/gurume/internal/pkg/config"
)

const (
	maxResults          = 10
	defaultSearchRadius = 5000
	defaultNearbyRadius = 1000
	defaultNearbyType   = "restaurant"
	photoMaxWidth       = 400
	minAutocompleteLen  = 2
)

// Searcher finds places. Search never fails: when the provider is missing
// or broken it answers with placeholder results.
type Searcher interface {
	Search(ctx context.Context, opts models.PlaceSearchOptions) []models.PlaceResult
	Nearby(ctx context.Context, lat, lng float64, radius int, placeType string) []models.PlaceResult
}

var _ Searcher = (*GoogleSearcher)(nil)

type googlePlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Vicinity         string   `json:"vicinity"`
	Rating           float64  `json:"rating"`
	PriceLevel       int      `json:"price_level"`
	Types            []string `json:"types"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Photos []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

type googleResponse struct {
	Status      string        `json:"status"`
	Results     []googlePlace `json:"results"`
	Result      *googlePlace  `json:"result"`
	Predictions []struct {
		PlaceID     string `json:"place_id"`
		Description string `json:"description"`
	} `json:"predictions"`
	ErrorMessage string `json:"error_message"`
}

// GoogleSearcher calls the Places web service.
type GoogleSearcher struct {
	client  *http.Client
	baseURL string
	apiKey  string
	cache   *cache.UnifiedCache[[]models.PlaceResult]
	group   singleflight.Group
	logger  *zap.Logger
}

func NewGoogleSearcher(cfg config.PlacesConfig, logger *zap.Logger) *GoogleSearcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &GoogleSearcher{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.GoogleAPIKey,
		cache:   cache.NewUnifiedCache[[]models.PlaceResult](ttl, "places", logger),
		logger:  logger,
	}
}

// FallbackPlaces are the placeholder results served when no real search
// can be made.
func FallbackPlaces(query string) []models.PlaceResult {
	return []models.PlaceResult{
		{PlaceID: "mock-1", Name: query + " Restoran", FormattedAddress: "Test Mahallesi, Test Caddesi No:1",
			Latitude: 41.0082, Longitude: 28.9784, Rating: 4.5},
		{PlaceID: "mock-2", Name: query + " Cafe", FormattedAddress: "Test Mahallesi, Test Sokak No:5",
			Latitude: 41.0092, Longitude: 28.9794, Rating: 4.2},
		{PlaceID: "mock-3", Name: query + " Pastane", FormattedAddress: "Test Mahallesi, Test Bulvarı No:15",
			Latitude: 41.0072, Longitude: 28.9774, Rating: 4.8},
	}
}

func (g *GoogleSearcher) cacheKey(opts models.PlaceSearchOptions) string {
	b := cache.NewCacheKeyBuilder(g.logger).AddText("q", opts.Query)
	if opts.HasLocation() {
		b.AddLocation(opts.Latitude, opts.Longitude).Add("radius", opts.Radius)
	}
	return "search:" + b.Add("type", opts.Type).BuildOrDefault()
}

// Search runs a text search. Identical concurrent searches share one call
// and successful answers are cached.
func (g *GoogleSearcher) Search(ctx context.Context, opts models.PlaceSearchOptions) []models.PlaceResult {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("places.query", opts.Query),
	))
	defer span.End()

	opts.Query = strings.TrimSpace(opts.Query)
	if opts.Radius <= 0 {
		opts.Radius = defaultSearchRadius
	}
	m := metrics.Get()

	if g.apiKey == "" {
		g.logger.Warn("Google Places API key missing, serving placeholder places")
		metrics.Inc(ctx, m.PlaceSearchFallbacks, attribute.String("reason", "no_key"))
		return FallbackPlaces(opts.Query)
	}

	key := g.cacheKey(opts)
	if cached, ok := g.cache.Get(key); ok {
		metrics.Inc(ctx, m.PlaceSearchesTotal, attribute.Bool("cache_hit", true))
		return cached
	}
	metrics.Inc(ctx, m.PlaceSearchesTotal, attribute.Bool("cache_hit", false))

	v, err, _ := g.group.Do(key, func() (any, error) {
		params := url.Values{}
		params.Set("query", opts.Query)
		if opts.HasLocation() {
			params.Set("location", latLng(opts.Latitude, opts.Longitude))
			params.Set("radius", strconv.Itoa(opts.Radius))
		}
		if opts.Type != "" {
			params.Set("type", opts.Type)
		}
		resp, err := g.call(ctx, "textsearch", params)
		if err != nil {
			return nil, err
		}
		results := g.convert(resp.Results, false)
		g.cache.Set(key, results)
		return results, nil
	})
	if err != nil {
		g.logger.Error("Place search failed, serving placeholder places", zap.String("query", opts.Query), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		metrics.Inc(ctx, m.PlaceSearchFallbacks, attribute.String("reason", "provider_error"))
		return FallbackPlaces(opts.Query)
	}

	span.SetStatus(codes.Ok, "places found")
	return v.([]models.PlaceResult)
}

// Nearby lists places around a point. It returns nothing on failure.
func (g *GoogleSearcher) Nearby(ctx context.Context, lat, lng float64, radius int, placeType string) []models.PlaceResult {
	if g.apiKey == "" {
		return []models.PlaceResult{}
	}
	if radius <= 0 {
		radius = defaultNearbyRadius
	}
	if placeType == "" {
		placeType = defaultNearbyType
	}

	params := url.Values{}
	params.Set("location", latLng(lat, lng))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("type", placeType)
	resp, err := g.call(ctx, "nearbysearch", params)
	if err != nil {
		g.logger.Warn("Nearby search failed", zap.Error(err))
		return []models.PlaceResult{}
	}
	return g.convert(resp.Results, true)
}

// Details looks a single place up. The bool is false when it cannot be found.
func (g *GoogleSearcher) Details(ctx context.Context, placeID string) (models.PlaceResult, bool) {
	if g.apiKey == "" || placeID == "" {
		return models.PlaceResult{}, false
	}
	params := url.Values{}
	params.Set("place_id", placeID)
	resp, err := g.call(ctx, "details", params)
	if err != nil || resp.Result == nil {
		g.logger.Warn("Place details failed", zap.String("place_id", placeID), zap.Error(err))
		return models.PlaceResult{}, false
	}
	return g.convert([]googlePlace{*resp.Result}, false)[0], true
}

// Autocomplete suggests establishments for a partial name.
func (g *GoogleSearcher) Autocomplete(ctx context.Context, input, sessionToken string) []models.PlacePrediction {
	input = strings.TrimSpace(input)
	if g.apiKey == "" || len([]rune(input)) < minAutocompleteLen {
		return []models.PlacePrediction{}
	}
	params := url.Values{}
	params.Set("input", input)
	params.Set("types", "establishment")
	if sessionToken != "" {
		params.Set("sessiontoken", sessionToken)
	}
	resp, err := g.call(ctx, "autocomplete", params)
	if err != nil {
		g.logger.Warn("Autocomplete failed", zap.Error(err))
		return []models.PlacePrediction{}
	}
	out := make([]models.PlacePrediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, models.PlacePrediction{PlaceID: p.PlaceID, Description: p.Description})
	}
	return out
}

func latLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

func (g *GoogleSearcher) call(ctx context.Context, endpoint string, params url.Values) (*googleResponse, error) {
	params.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/"+endpoint+"/json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	var body googleResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("places status %s: %s", body.Status, body.ErrorMessage)
	}
	return &body, nil
}

func (g *GoogleSearcher) photoURL(ref string) string {
	params := url.Values{}
	params.Set("maxwidth", strconv.Itoa(photoMaxWidth))
	params.Set("photoreference", ref)
	params.Set("key", g.apiKey)
	return g.baseURL + "/photo?" + params.Encode()
}

func (g *GoogleSearcher) convert(places []googlePlace, vicinity bool) []models.PlaceResult {
	if len(places) > maxResults {
		places = places[:maxResults]
	}
	out := make([]models.PlaceResult, 0, len(places))
	for _, p := range places {
		r := models.PlaceResult{
			PlaceID:          p.PlaceID,
			Name:             p.Name,
			FormattedAddress: p.FormattedAddress,
			Latitude:         p.Geometry.Location.Lat,
			Longitude:        p.Geometry.Location.Lng,
			Rating:           p.Rating,
			PriceLevel:       p.PriceLevel,
			Types:            p.Types,
		}
		if vicinity {
			r.FormattedAddress = p.Vicinity
		}
		if len(p.Photos) > 0 && p.Photos[0].PhotoReference != "" {
			r.PhotoURL = g.photoURL(p.Photos[0].PhotoReference)
		}
		out = append(out, r)
	}
	return out
}
