package routes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	"github.com/FACorreiaa/gurume/internal/app/models"
	"github.com/FACorreiaa/gurume/internal/app/observability/metrics"
)

const localRoutePrefix = "local-"

// Service creates, lists and moderates routes. Every change is mirrored
// into the catalog store so readers see it immediately.
type Service struct {
	repo    Repository
	store   *catalog.Store
	builder *Builder
	logger  *zap.Logger
}

func NewService(repo Repository, store *catalog.Store, builder *Builder, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		store:   store,
		builder: builder,
		logger:  logger,
	}
}

// IsLocal reports whether a route only lives in this process.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, localRoutePrefix)
}

// CreateRoute builds a route from draft and stores it. Routes of callers
// that cannot publish stay in memory under a local id.
func (s *Service) CreateRoute(ctx context.Context, draft models.RouteDraft, caller Caller) (models.Route, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "CreateRoute")
	defer span.End()

	l := s.logger.With(zap.String("method", "CreateRoute"), zap.String("author_id", caller.Author.ID))

	route, err := s.builder.Build(draft, caller, s.store.Snapshot())
	if err != nil {
		l.Debug("Route draft rejected", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid draft")
		return models.Route{}, err
	}

	durable := caller.CanPublish()
	if durable {
		route.ID = uuid.NewString()
	} else {
		route.ID = localRoutePrefix + uuid.NewString()
	}
	for i := range route.Stops {
		route.Stops[i].ID = fmt.Sprintf("%s-%d", route.ID, route.Stops[i].Order)
	}
	span.SetAttributes(attribute.String("route.id", route.ID), attribute.Bool("route.durable", durable))

	if durable {
		if err := s.repo.CreateRoute(ctx, route); err != nil {
			l.Error("Failed to persist route", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist failed")
			return models.Route{}, err
		}
	}

	if err := s.store.MergeRoutes(route); err != nil {
		l.Warn("Failed to merge route into catalog", zap.Error(err))
	}

	metrics.Inc(ctx, metrics.Get().RoutesCreatedTotal,
		attribute.Bool("published", route.IsPublished), attribute.Bool("durable", durable))
	l.Info("Route created", zap.String("route_id", route.ID), zap.Bool("published", route.IsPublished))
	span.SetStatus(codes.Ok, "route created")
	return route, nil
}

// GetRoute returns a route the viewer may see. Unpublished routes of other
// authors are reported as not found.
func (s *Service) GetRoute(ctx context.Context, id, viewerID string) (models.Route, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "GetRoute")
	defer span.End()

	route, err := s.lookup(ctx, id)
	if err != nil {
		span.RecordError(err)
		return models.Route{}, err
	}
	if !route.VisibleTo(viewerID) {
		span.SetStatus(codes.Error, "not visible")
		return models.Route{}, fmt.Errorf("route %q: %w", id, models.ErrNotFound)
	}
	span.SetStatus(codes.Ok, "route found")
	return route, nil
}

func (s *Service) lookup(ctx context.Context, id string) (models.Route, error) {
	if r, ok := s.store.Snapshot().GetRouteByID(id); ok {
		return r, nil
	}
	if IsLocal(id) {
		return models.Route{}, fmt.Errorf("route %q: %w", id, models.ErrNotFound)
	}
	return s.repo.GetRoute(ctx, id)
}

// ListRoutes returns published routes matching filter.
func (s *Service) ListRoutes(ctx context.Context, filter models.RouteFilter) ([]models.Route, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "ListRoutes")
	defer span.End()

	routes, err := s.repo.ListRoutes(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}

	routes = NewMatcher(filter.Query).Filter(routes, s.store)
	if filter.Limit > 0 && len(routes) > filter.Limit {
		routes = routes[:filter.Limit]
	}

	span.SetAttributes(attribute.Int("routes.count", len(routes)))
	span.SetStatus(codes.Ok, "routes listed")
	return routes, nil
}

// ownedBy reports whether authorID may change route. Guests own nothing.
func ownedBy(route models.Route, authorID string) bool {
	return authorID != "" && authorID != models.GuestAuthor.ID && route.Author.ID == authorID
}

// ListByAuthor returns every route of one author, newest first, including
// routes still waiting for moderation.
func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]models.Route, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "ListByAuthor")
	defer span.End()

	if authorID == "" || authorID == models.GuestAuthor.ID {
		return nil, fmt.Errorf("author routes: %w", models.ErrUnauthenticated)
	}

	stored, err := s.repo.ListByAuthor(ctx, authorID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}

	// Cached copies carry the latest counters and cover local routes.
	byID := make(map[string]models.Route, len(stored))
	for _, r := range stored {
		byID[r.ID] = r
	}
	for _, r := range s.store.Snapshot().Routes() {
		if r.Author.ID == authorID {
			byID[r.ID] = r
		}
	}

	routes := make([]models.Route, 0, len(byID))
	for _, r := range byID {
		routes = append(routes, r)
	}
	sortRoutes(routes, models.RouteSortNewest)

	span.SetAttributes(attribute.Int("routes.count", len(routes)))
	span.SetStatus(codes.Ok, "routes listed")
	return routes, nil
}

// UpdateRoute edits the descriptive fields of a route owned by authorID.
// Unpublished routes of other authors are reported as not found.
func (s *Service) UpdateRoute(ctx context.Context, id, authorID string, patch models.RoutePatch) (models.Route, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "UpdateRoute")
	defer span.End()

	l := s.logger.With(zap.String("method", "UpdateRoute"), zap.String("route_id", id))

	route, err := s.lookup(ctx, id)
	if err != nil {
		span.RecordError(err)
		return models.Route{}, err
	}
	if !route.VisibleTo(authorID) {
		return models.Route{}, fmt.Errorf("route %q: %w", id, models.ErrNotFound)
	}
	if !ownedBy(route, authorID) {
		l.Warn("Update refused for non-owner", zap.String("author_id", authorID))
		span.SetStatus(codes.Error, "forbidden")
		return models.Route{}, fmt.Errorf("route %q: %w", id, models.ErrForbidden)
	}

	updated, err := s.builder.Patch(route, patch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid patch")
		return models.Route{}, err
	}

	if !IsLocal(id) {
		if err := s.repo.UpdateRoute(ctx, updated); err != nil {
			l.Error("Failed to update route", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "update failed")
			return models.Route{}, err
		}
	}
	if updated.ModerationStatus != models.ModerationRejected {
		if err := s.store.MergeRoutes(updated); err != nil {
			l.Warn("Failed to merge route into catalog", zap.Error(err))
		}
	}

	l.Info("Route updated")
	span.SetStatus(codes.Ok, "route updated")
	return updated, nil
}

// DeleteRoute removes a route owned by authorID.
func (s *Service) DeleteRoute(ctx context.Context, id, authorID string) error {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "DeleteRoute")
	defer span.End()

	l := s.logger.With(zap.String("method", "DeleteRoute"), zap.String("route_id", id))

	route, err := s.lookup(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !ownedBy(route, authorID) {
		l.Warn("Delete refused for non-owner", zap.String("author_id", authorID))
		span.SetStatus(codes.Error, "forbidden")
		return fmt.Errorf("route %q: %w", id, models.ErrForbidden)
	}

	if !IsLocal(id) {
		if err := s.repo.DeleteRoute(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
			l.Error("Failed to delete route", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "delete failed")
			return err
		}
	}
	if err := s.store.RemoveRoute(id); err != nil {
		l.Warn("Failed to drop route from catalog", zap.Error(err))
	}

	l.Info("Route deleted")
	span.SetStatus(codes.Ok, "route deleted")
	return nil
}

// Moderate sets the moderation status of a persisted route. Approved routes
// become public and rejected ones leave the catalog.
func (s *Service) Moderate(ctx context.Context, id string, status models.ModerationStatus) (models.Route, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "Moderate")
	defer span.End()

	l := s.logger.With(zap.String("method", "Moderate"), zap.String("route_id", id), zap.String("status", string(status)))

	if !status.Valid() {
		return models.Route{}, fmt.Errorf("%w: unknown moderation status %q", models.ErrValidation, status)
	}
	if err := s.repo.SetModerationStatus(ctx, id, status); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "moderation failed")
		return models.Route{}, err
	}

	route, err := s.repo.GetRoute(ctx, id)
	if err != nil {
		span.RecordError(err)
		return models.Route{}, err
	}

	if status == models.ModerationRejected {
		err = s.store.RemoveRoute(id)
	} else {
		err = s.store.MergeRoutes(route)
	}
	if err != nil {
		l.Warn("Failed to sync catalog after moderation", zap.Error(err))
	}

	l.Info("Route moderated")
	span.SetStatus(codes.Ok, "route moderated")
	return route, nil
}
