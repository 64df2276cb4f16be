package favorites

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
)

// Owner is whose favorites an operation works on. Durable owners are
// signed-in users whose changes are persisted before the set changes.
type Owner struct {
	UserID  uuid.UUID
	Durable bool
	Set     *Set
}

type Service struct {
	repo   Repository
	store  *catalog.Store
	logger *zap.Logger
}

// NewService creates the service. repo may be nil in demo mode.
func NewService(repo Repository, store *catalog.Store, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

func (s *Service) durable(o Owner) bool {
	return o.Durable && s.repo != nil
}

// Load replaces the owner's set with the persisted favorites.
func (s *Service) Load(ctx context.Context, o Owner) error {
	if !s.durable(o) {
		return nil
	}
	ids, err := s.repo.ListRouteIDs(ctx, o.UserID)
	if err != nil {
		return err
	}
	o.Set.Replace(ids)
	return nil
}

// Toggle flips routeID in the owner's favorites and returns the new state.
// For durable owners the change is persisted first; on failure the set is
// left as it was.
func (s *Service) Toggle(ctx context.Context, o Owner, routeID string) (bool, error) {
	ctx, span := otel.Tracer("FavoritesService").Start(ctx, "Toggle")
	defer span.End()

	o.Set.op.Lock()
	defer o.Set.op.Unlock()

	want := !o.Set.Has(routeID)
	if err := s.apply(ctx, o, routeID, want); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "toggle failed")
		return !want, err
	}

	direction := "removed"
	if want {
		direction = "added"
	}
	metrics.Inc(ctx, metrics.Get().FavoritesToggledTotal, attribute.String("direction", direction))
	span.SetAttributes(attribute.String("route.id", routeID), attribute.Bool("favorite", want))
	span.SetStatus(codes.Ok, "toggled")
	return want, nil
}

// SaveRoute adds routeID to the owner's favorites. Saving twice is a no-op.
func (s *Service) SaveRoute(ctx context.Context, o Owner, routeID string) error {
	o.Set.op.Lock()
	defer o.Set.op.Unlock()

	if o.Set.Has(routeID) {
		return nil
	}
	return s.apply(ctx, o, routeID, true)
}

func (s *Service) apply(ctx context.Context, o Owner, routeID string, member bool) error {
	l := s.logger.With(zap.String("method", "apply"), zap.String("route_id", routeID), zap.Bool("favorite", member))

	changed := false
	if s.durable(o) {
		var err error
		if member {
			changed, err = s.repo.Add(ctx, o.UserID, routeID)
		} else {
			changed, err = s.repo.Remove(ctx, o.UserID, routeID)
		}
		if err != nil {
			l.Error("Failed to persist favorite", zap.Error(err))
			return err
		}
	}

	o.Set.set(routeID, member)

	if changed {
		delta := -1
		if member {
			delta = 1
		}
		if err := s.store.AdjustFavoriteCount(routeID, delta); err != nil {
			l.Warn("Failed to adjust cached favorite count", zap.Error(err))
		}
	}
	l.Debug("Favorite updated", zap.Bool("persisted", changed))
	return nil
}

// List resolves the owner's favorites to routes visible to viewerID,
// skipping ids the catalog no longer knows.
func (s *Service) List(o Owner, viewerID string) []models.Route {
	snap := s.store.Snapshot()
	out := make([]models.Route, 0, o.Set.Len())
	for _, id := range o.Set.IDs() {
		if r, ok := snap.GetRouteByID(id); ok && r.VisibleTo(viewerID) {
			out = append(out, r)
		}
	}
	return out
}

// Known reports whether routeID resolves in the catalog.
func (s *Service) Known(routeID string) bool {
	_, ok := s.store.Snapshot().GetRouteByID(routeID)
	return ok
}
