package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/pkg/slug"
)

const defaultCityImage = "https://images.unsplash.com/photo-1504674900247-0877df9cc836?auto=format&fit=crop&w=1200&q=80"

var defaultCityCenter = models.Coordinates{Latitude: 39.0, Longitude: 35.0}

type provinceResponse struct {
	Status string     `json:"status"`
	Data   []province `json:"data"`
}

type province struct {
	ID          int                 `json:"id"`
	Name        string              `json:"name"`
	Coordinates *models.Coordinates `json:"coordinates"`
	Region      *struct {
		EN string `json:"en"`
		TR string `json:"tr"`
	} `json:"region"`
	Districts []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"districts"`
}

// ProvinceImporter turns the public Türkiye province API into cities and districts.
type ProvinceImporter struct {
	client *http.Client
	url    string
	logger *zap.Logger
}

func NewProvinceImporter(url string, timeout time.Duration, logger *zap.Logger) *ProvinceImporter {
	return &ProvinceImporter{
		client: &http.Client{Timeout: timeout},
		url:    url,
		logger: logger,
	}
}

// Fetch downloads provinces. Cities already known keep their hero image,
// highlight tags and signature dishes.
func (p *ProvinceImporter) Fetch(ctx context.Context, known *Catalog) ([]models.City, []models.District, error) {
	ctx, span := otel.Tracer("ProvinceImporter").Start(ctx, "Fetch", trace.WithAttributes(
		attribute.String("http.url", p.url),
	))
	defer span.End()

	l := p.logger.With(zap.String("method", "Fetch"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build province request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, nil, fmt.Errorf("province request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("geo service responded with %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad status")
		return nil, nil, err
	}

	var payload provinceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		span.RecordError(err)
		return nil, nil, fmt.Errorf("failed to decode provinces: %w", err)
	}

	cities, districts := buildGeography(payload.Data, known)
	l.Info("Provinces fetched", zap.Int("cities", len(cities)), zap.Int("districts", len(districts)))
	span.SetStatus(codes.Ok, "provinces fetched")
	return cities, districts, nil
}

func buildGeography(provinces []province, known *Catalog) ([]models.City, []models.District) {
	if known == nil {
		known = Empty()
	}

	cities := make([]models.City, 0, len(provinces))
	districts := make([]models.District, 0)
	for _, pr := range provinces {
		cityID := slug.CityID(pr.Name)
		city := models.City{
			ID:              cityID,
			Code:            fmt.Sprintf("%02d", pr.ID),
			Name:            pr.Name,
			Slug:            slug.Make(pr.Name),
			Description:     pr.Name + " ilindeki yerel lezzetleri keşfet.",
			HeroImage:       defaultCityImage,
			HighlightTags:   []string{"Yerel Tat", "Gurme"},
			SignatureDishes: []string{},
			Coordinates:     defaultCityCenter,
		}
		if existing, ok := known.GetCityByID(cityID); ok {
			city.HeroImage = existing.HeroImage
			city.HighlightTags = existing.HighlightTags
			city.SignatureDishes = existing.SignatureDishes
			city.Description = existing.Description
		}
		if pr.Coordinates != nil {
			city.Coordinates = *pr.Coordinates
		}
		if pr.Region != nil {
			city.Region = pr.Region.TR
			if city.Region == "" {
				city.Region = pr.Region.EN
			}
		}
		cities = append(cities, city)

		for _, d := range pr.Districts {
			districts = append(districts, models.District{
				ID:     slug.DistrictID(pr.Name, d.Name),
				CityID: cityID,
				Name:   d.Name,
				Code:   fmt.Sprint(d.ID),
			})
		}
	}
	return cities, districts
}
