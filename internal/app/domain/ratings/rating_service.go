package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	"github.com/FACorreiaa/gurume/internal/app/domain/routes"
	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
)

// Rater is who submits a rating. Ratings of non-durable raters live in
// memory only.
type Rater struct {
	UserID  uuid.UUID
	Durable bool
	// AuthorID is the rater as a route author; unpublished routes can only
	// be rated by their own author.
	AuthorID string
}

// Service validates ratings, routes them to the right repository and
// mirrors every committed aggregate into the catalog.
type Service struct {
	repo   Repository
	local  Repository
	store  *catalog.Store
	logger *zap.Logger
	now    func() time.Time

	// applyMu orders catalog updates so a late writer cannot put back an
	// older aggregate.
	applyMu sync.Mutex
}

// NewService creates the service. repo is nil in demo mode, when every
// rating goes to local.
func NewService(repo, local Repository, store *catalog.Store, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		local:  local,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// forRoute picks the repository for ratings of routeID. Persisted routes
// only take ratings from durable raters.
func (s *Service) forRoute(rater Rater, routeID string) (Repository, error) {
	if s.repo == nil || routes.IsLocal(routeID) {
		return s.local, nil
	}
	if !rater.Durable {
		return nil, fmt.Errorf("rating route %q: %w", routeID, models.ErrUnauthenticated)
	}
	return s.repo, nil
}

// holding runs fn against each repository that may hold the rater's
// ratings, local first, and stops at the first one that knows the rating.
// Durable raters keep ratings of local routes in memory too.
func (s *Service) holding(rater Rater, fn func(Repository) error) (Repository, error) {
	repos := []Repository{s.local}
	if s.repo != nil && rater.Durable {
		repos = append(repos, s.repo)
	}
	var err error
	for _, repo := range repos {
		if err = fn(repo); !errors.Is(err, models.ErrNotFound) {
			return repo, err
		}
	}
	return nil, err
}

func (s *Service) forReading(routeID string) Repository {
	if s.repo == nil || routes.IsLocal(routeID) {
		return s.local
	}
	return s.repo
}

// CreateRating records the rater's score for a route. A second rating of
// the same route by the same rater fails with ErrAlreadyRated and leaves
// the aggregate untouched.
func (s *Service) CreateRating(ctx context.Context, input models.CreateRatingInput, rater Rater) (models.RatingResult, error) {
	ctx, span := otel.Tracer("RatingService").Start(ctx, "CreateRating")
	defer span.End()

	l := s.logger.With(zap.String("method", "CreateRating"), zap.String("route_id", input.RouteID))

	result, err := s.create(ctx, input, rater)
	outcome := "accepted"
	if err != nil {
		outcome = "rejected"
		if errors.Is(err, models.ErrAlreadyRated) {
			outcome = "duplicate"
		}
		l.Debug("Rating rejected", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetStatus(codes.Ok, "rating created")
	}
	metrics.Inc(ctx, metrics.Get().RatingsTotal, attribute.String("outcome", outcome))
	return result, err
}

func (s *Service) create(ctx context.Context, input models.CreateRatingInput, rater Rater) (models.RatingResult, error) {
	if strings.TrimSpace(input.RouteID) == "" {
		return models.RatingResult{}, fmt.Errorf("%w: route id is required", models.ErrValidation)
	}
	if err := ValidateScore(input.Score); err != nil {
		return models.RatingResult{}, err
	}
	if route, ok := s.store.Snapshot().GetRouteByID(input.RouteID); ok && !route.VisibleTo(rater.AuthorID) {
		return models.RatingResult{}, fmt.Errorf("route %q: %w", input.RouteID, models.ErrNotFound)
	}
	repo, err := s.forRoute(rater, input.RouteID)
	if err != nil {
		return models.RatingResult{}, err
	}

	now := s.now().UTC()
	rating := models.RouteRating{
		ID:        uuid.New(),
		RouteID:   input.RouteID,
		UserID:    rater.UserID,
		Score:     input.Score,
		Comment:   strings.TrimSpace(input.Comment),
		VisitedAt: input.VisitedAt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	summary, err := repo.CreateRating(ctx, rating)
	if err != nil {
		return models.RatingResult{}, err
	}
	s.apply(ctx, repo, summary)
	return models.RatingResult{Rating: &rating, Summary: summary}, nil
}

// GetRatingsByRoute lists a route's ratings, newest first.
func (s *Service) GetRatingsByRoute(ctx context.Context, routeID string) ([]models.RouteRating, error) {
	ctx, span := otel.Tracer("RatingService").Start(ctx, "GetRatingsByRoute")
	defer span.End()
	span.SetAttributes(attribute.String("route.id", routeID))

	return s.forReading(routeID).ListByRoute(ctx, routeID)
}

// GetUserRatingForRoute returns the rater's own rating of a route.
func (s *Service) GetUserRatingForRoute(ctx context.Context, routeID string, rater Rater) (models.RouteRating, error) {
	ctx, span := otel.Tracer("RatingService").Start(ctx, "GetUserRatingForRoute")
	defer span.End()

	repo := s.forReading(routeID)
	if repo == s.repo && !rater.Durable {
		return models.RouteRating{}, fmt.Errorf("rating for route %q: %w", routeID, models.ErrNotFound)
	}
	return repo.GetUserRating(ctx, routeID, rater.UserID)
}

// UpdateRating changes one of the rater's ratings. The route aggregate is
// recomputed from all of its ratings.
func (s *Service) UpdateRating(ctx context.Context, ratingID uuid.UUID, input models.UpdateRatingInput, rater Rater) (models.RatingResult, error) {
	ctx, span := otel.Tracer("RatingService").Start(ctx, "UpdateRating")
	defer span.End()

	l := s.logger.With(zap.String("method", "UpdateRating"), zap.String("rating_id", ratingID.String()))

	if err := ValidateScore(input.Score); err != nil {
		span.RecordError(err)
		return models.RatingResult{}, err
	}
	var comment *string
	if input.Comment != nil {
		c := strings.TrimSpace(*input.Comment)
		comment = &c
	}

	var (
		rating  models.RouteRating
		summary models.RatingSummary
	)
	repo, err := s.holding(rater, func(repo Repository) (err error) {
		rating, summary, err = repo.UpdateRating(ctx, ratingID, rater.UserID, input.Score, comment)
		return err
	})
	if err != nil {
		l.Debug("Rating update rejected", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return models.RatingResult{}, err
	}
	s.apply(ctx, repo, summary)
	span.SetStatus(codes.Ok, "rating updated")
	return models.RatingResult{Rating: &rating, Summary: summary}, nil
}

// DeleteRating removes one of the rater's ratings and returns the
// recomputed aggregate.
func (s *Service) DeleteRating(ctx context.Context, ratingID uuid.UUID, rater Rater) (models.RatingSummary, error) {
	ctx, span := otel.Tracer("RatingService").Start(ctx, "DeleteRating")
	defer span.End()

	var summary models.RatingSummary
	repo, err := s.holding(rater, func(repo Repository) (err error) {
		summary, err = repo.DeleteRating(ctx, ratingID, rater.UserID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return models.RatingSummary{}, err
	}
	s.apply(ctx, repo, summary)
	span.SetStatus(codes.Ok, "rating deleted")
	return summary, nil
}

// apply mirrors a committed aggregate into the catalog. The aggregate is read
// again from repo while holding applyMu, so whichever apply runs last writes
// a value at least as new as every commit before it.
func (s *Service) apply(ctx context.Context, repo Repository, committed models.RatingSummary) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	summary, err := repo.RouteSummary(ctx, committed.RouteID)
	if err != nil {
		s.logger.Warn("Failed to re-read rating summary, using the committed one",
			zap.String("route_id", committed.RouteID), zap.Error(err))
		summary = committed
	}
	if err := s.store.ApplyRatingSummary(summary); err != nil {
		s.logger.Warn("Failed to apply rating summary to catalog",
			zap.String("route_id", summary.RouteID), zap.Error(err))
	}
}
