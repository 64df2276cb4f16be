package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
	database "github.com/FACorreiaa/gurume/internal/db"
)

var _ Repository = (*PostgresRepository)(nil)

// Repository persists the geographic part of the catalog.
type Repository interface {
	LoadGeography(ctx context.Context) (Data, error)
	SaveCities(ctx context.Context, cities []models.City) error
	SaveDistricts(ctx context.Context, districts []models.District) error
	SavePlaces(ctx context.Context, places []models.Place) error
}

type PostgresRepository struct {
	logger *zap.Logger
	pgpool database.Pool
}

func NewPostgresRepository(pgpool database.Pool, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

// LoadGeography reads cities, districts and places in insertion order.
func (r *PostgresRepository) LoadGeography(ctx context.Context) (Data, error) {
	ctx, span := otel.Tracer("CatalogRepository").Start(ctx, "LoadGeography", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "LoadGeography"))

	var d Data
	var err error
	if d.Cities, err = r.loadCities(ctx); err != nil {
		l.Error("Failed to load cities", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "load cities failed")
		return Data{}, err
	}
	if d.Districts, err = r.loadDistricts(ctx); err != nil {
		l.Error("Failed to load districts", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "load districts failed")
		return Data{}, err
	}
	if d.Places, err = r.loadPlaces(ctx); err != nil {
		l.Error("Failed to load places", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "load places failed")
		return Data{}, err
	}

	span.SetAttributes(
		attribute.Int("cities.count", len(d.Cities)),
		attribute.Int("districts.count", len(d.Districts)),
		attribute.Int("places.count", len(d.Places)),
	)
	span.SetStatus(codes.Ok, "geography loaded")
	l.Info("Geography loaded", zap.Int("cities", len(d.Cities)), zap.Int("places", len(d.Places)))
	return d, nil
}

func (r *PostgresRepository) loadCities(ctx context.Context) ([]models.City, error) {
	rows, err := r.pgpool.Query(ctx, `
		SELECT id, code, name, slug, description, hero_image, highlight_tags, signature_dishes,
		       latitude, longitude, region
		FROM cities ORDER BY code, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query cities: %w", models.ErrPersistence, err)
	}
	defer rows.Close()

	cities := make([]models.City, 0)
	for rows.Next() {
		var c models.City
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Slug, &c.Description, &c.HeroImage,
			&c.HighlightTags, &c.SignatureDishes, &c.Coordinates.Latitude, &c.Coordinates.Longitude, &c.Region); err != nil {
			return nil, fmt.Errorf("%w: scan city: %w", models.ErrPersistence, err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate cities: %w", models.ErrPersistence, err)
	}
	return cities, nil
}

func (r *PostgresRepository) loadDistricts(ctx context.Context) ([]models.District, error) {
	rows, err := r.pgpool.Query(ctx, `SELECT id, city_id, name, code FROM districts ORDER BY city_id, name`)
	if err != nil {
		return nil, fmt.Errorf("%w: query districts: %w", models.ErrPersistence, err)
	}
	defer rows.Close()

	districts := make([]models.District, 0)
	for rows.Next() {
		var d models.District
		if err := rows.Scan(&d.ID, &d.CityID, &d.Name, &d.Code); err != nil {
			return nil, fmt.Errorf("%w: scan district: %w", models.ErrPersistence, err)
		}
		districts = append(districts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate districts: %w", models.ErrPersistence, err)
	}
	return districts, nil
}

func (r *PostgresRepository) loadPlaces(ctx context.Context) ([]models.Place, error) {
	rows, err := r.pgpool.Query(ctx, `
		SELECT id, city_id, district_id, name, summary, specialties, speed_score, cleanliness_score,
		       value_score, price_level, hero_image, latitude, longitude
		FROM places ORDER BY city_id, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query places: %w", models.ErrPersistence, err)
	}
	defer rows.Close()

	places := make([]models.Place, 0)
	for rows.Next() {
		var p models.Place
		var districtID pgtype.Text
		var price string
		if err := rows.Scan(&p.ID, &p.CityID, &districtID, &p.Name, &p.Summary, &p.Specialties,
			&p.SpeedScore, &p.CleanlinessScore, &p.ValueScore, &price, &p.HeroImage,
			&p.Coordinates.Latitude, &p.Coordinates.Longitude); err != nil {
			return nil, fmt.Errorf("%w: scan place: %w", models.ErrPersistence, err)
		}
		if districtID.Valid {
			p.DistrictID = &districtID.String
		}
		p.PriceLevel = models.PriceLevel(price)
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate places: %w", models.ErrPersistence, err)
	}
	return places, nil
}

// SaveCities upserts cities in a single batch.
func (r *PostgresRepository) SaveCities(ctx context.Context, cities []models.City) error {
	batch := &pgx.Batch{}
	for _, c := range cities {
		batch.Queue(`
			INSERT INTO cities (id, code, name, slug, description, hero_image, highlight_tags,
			                    signature_dishes, latitude, longitude, region)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				code = EXCLUDED.code, name = EXCLUDED.name, slug = EXCLUDED.slug,
				description = EXCLUDED.description, hero_image = EXCLUDED.hero_image,
				highlight_tags = EXCLUDED.highlight_tags, signature_dishes = EXCLUDED.signature_dishes,
				latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, region = EXCLUDED.region`,
			c.ID, c.Code, c.Name, c.Slug, c.Description, c.HeroImage, nonNil(c.HighlightTags),
			nonNil(c.SignatureDishes), c.Coordinates.Latitude, c.Coordinates.Longitude, c.Region)
	}
	return r.sendBatch(ctx, "SaveCities", batch, len(cities))
}

// SaveDistricts upserts districts in a single batch.
func (r *PostgresRepository) SaveDistricts(ctx context.Context, districts []models.District) error {
	batch := &pgx.Batch{}
	for _, d := range districts {
		batch.Queue(`
			INSERT INTO districts (id, city_id, name, code) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET city_id = EXCLUDED.city_id, name = EXCLUDED.name, code = EXCLUDED.code`,
			d.ID, d.CityID, d.Name, d.Code)
	}
	return r.sendBatch(ctx, "SaveDistricts", batch, len(districts))
}

// SavePlaces upserts places in a single batch.
func (r *PostgresRepository) SavePlaces(ctx context.Context, places []models.Place) error {
	batch := &pgx.Batch{}
	for _, p := range places {
		batch.Queue(`
			INSERT INTO places (id, city_id, district_id, name, summary, specialties, speed_score,
			                    cleanliness_score, value_score, price_level, hero_image, latitude, longitude)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				city_id = EXCLUDED.city_id, district_id = EXCLUDED.district_id, name = EXCLUDED.name,
				summary = EXCLUDED.summary, specialties = EXCLUDED.specialties,
				speed_score = EXCLUDED.speed_score, cleanliness_score = EXCLUDED.cleanliness_score,
				value_score = EXCLUDED.value_score, price_level = EXCLUDED.price_level,
				hero_image = EXCLUDED.hero_image, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude`,
			p.ID, p.CityID, p.DistrictID, p.Name, p.Summary, nonNil(p.Specialties), p.SpeedScore,
			p.CleanlinessScore, p.ValueScore, string(p.PriceLevel), p.HeroImage,
			p.Coordinates.Latitude, p.Coordinates.Longitude)
	}
	return r.sendBatch(ctx, "SavePlaces", batch, len(places))
}

func (r *PostgresRepository) sendBatch(ctx context.Context, method string, batch *pgx.Batch, n int) error {
	ctx, span := otel.Tracer("CatalogRepository").Start(ctx, method, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.Int("rows", n),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", method))
	if n == 0 {
		return nil
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: begin: %w", models.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				l.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		l.Error("Batch upsert failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch failed")
		return fmt.Errorf("%w: %s: %w", models.ErrPersistence, method, err)
	}
	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: commit: %w", models.ErrPersistence, err)
	}

	l.Info("Rows upserted", zap.Int("count", n))
	span.SetStatus(codes.Ok, "upserted")
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
