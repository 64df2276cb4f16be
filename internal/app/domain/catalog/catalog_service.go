package catalog

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
)

// RouteSource loads the persisted routes that belong in the catalog.
type RouteSource interface {
	LoadRoutes(ctx context.Context) ([]models.Route, error)
}

// Service keeps the catalog store in sync with its backing sources. A nil
// repository means demo mode: the embedded seed is the only source.
type Service struct {
	store    *Store
	repo     Repository
	routes   RouteSource
	importer *ProvinceImporter
	logger   *zap.Logger
}

func NewService(store *Store, repo Repository, routes RouteSource, importer *ProvinceImporter, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		repo:     repo,
		routes:   routes,
		importer: importer,
		logger:   logger,
	}
}

func (s *Service) Store() *Store {
	return s.store
}

// Refresh rebuilds the catalog from its sources and swaps it in. Province
// import failures are logged and never fail the refresh.
func (s *Service) Refresh(ctx context.Context) error {
	ctx, span := otel.Tracer("CatalogService").Start(ctx, "Refresh")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.Observe(ctx, metrics.Get().CatalogRefreshDuration, time.Since(start))
	}()

	l := s.logger.With(zap.String("method", "Refresh"))

	data, err := s.load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return err
	}

	c, err := New(data)
	if err != nil {
		l.Error("Catalog data is inconsistent", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid catalog")
		return err
	}
	s.store.Replace(c)

	if s.importer != nil {
		cities, districts, err := s.importer.Fetch(ctx, c)
		if err != nil {
			l.Warn("Province fetch failed", zap.Error(err))
		} else if err := s.store.MergeGeography(cities, districts); err != nil {
			l.Warn("Province merge failed", zap.Error(err))
		}
	}

	snap := s.store.Snapshot()
	span.SetAttributes(attribute.Int("cities.count", len(snap.Cities())), attribute.Int("routes.count", len(snap.Routes())))
	span.SetStatus(codes.Ok, "refreshed")
	l.Info("Catalog refreshed", zap.Int("cities", len(snap.Cities())), zap.Int("routes", len(snap.Routes())))
	return nil
}

func (s *Service) load(ctx context.Context) (Data, error) {
	if s.repo == nil {
		return LoadSeed()
	}

	var geo Data
	var routes []models.Route
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		geo, err = s.repo.LoadGeography(gctx)
		return err
	})
	if s.routes != nil {
		g.Go(func() error {
			var err error
			routes, err = s.routes.LoadRoutes(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Data{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	geo.Routes = routes
	return geo, nil
}

// SeedGeography writes the embedded cities, districts and places to the repository.
func (s *Service) SeedGeography(ctx context.Context) (Data, error) {
	if s.repo == nil {
		return Data{}, models.ErrNotConfigured
	}
	seed, err := LoadSeed()
	if err != nil {
		return Data{}, err
	}
	c, err := New(seed)
	if err != nil {
		return Data{}, err
	}
	seed = c.Data()

	if err := s.repo.SaveCities(ctx, seed.Cities); err != nil {
		return Data{}, err
	}
	if err := s.repo.SaveDistricts(ctx, seed.Districts); err != nil {
		return Data{}, err
	}
	if err := s.repo.SavePlaces(ctx, seed.Places); err != nil {
		return Data{}, err
	}
	return seed, nil
}

// ImportProvinces fetches provinces and persists them, returning the counts written.
func (s *Service) ImportProvinces(ctx context.Context) (int, int, error) {
	if s.repo == nil || s.importer == nil {
		return 0, 0, models.ErrNotConfigured
	}
	cities, districts, err := s.importer.Fetch(ctx, s.store.Snapshot())
	if err != nil {
		return 0, 0, err
	}
	if err := s.repo.SaveCities(ctx, cities); err != nil {
		return 0, 0, err
	}
	if err := s.repo.SaveDistricts(ctx, districts); err != nil {
		return 0, 0, err
	}
	return len(cities), len(districts), nil
}
