package routes

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	"github.com/FACorreiaa/gurume/internal/app/models"
	database "github.com/FACorreiaa/gurume/internal/db"
)

var (
	_ Repository          = (*PostgresRepository)(nil)
	_ catalog.RouteSource = (*PostgresRepository)(nil)
)

// Repository persists routes and their stops.
type Repository interface {
	CreateRoute(ctx context.Context, route models.Route) error
	GetRoute(ctx context.Context, id string) (models.Route, error)
	LoadRoutes(ctx context.Context) ([]models.Route, error)
	ListRoutes(ctx context.Context, filter models.RouteFilter) ([]models.Route, error)
	ListByAuthor(ctx context.Context, authorID string) ([]models.Route, error)
	UpdateRoute(ctx context.Context, route models.Route) error
	DeleteRoute(ctx context.Context, id string) error
	SetModerationStatus(ctx context.Context, id string, status models.ModerationStatus) error
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

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

// CreateRoute inserts the route and all its stops in one transaction.
func (r *PostgresRepository) CreateRoute(ctx context.Context, route models.Route) (err error) {
	ctx, span := otel.Tracer("RouteRepository").Start(ctx, "CreateRoute", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", route.ID),
		attribute.Int("route.stops", len(route.Stops)),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "CreateRoute"), zap.String("route_id", route.ID))
	l.Debug("Creating route")

	row, err := toRouteRow(route)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid route")
		return err
	}

	query, args, err := psql.Insert("routes").
		Columns("id", "created_at", "user_id", "author_name", "author_avatar_url", "title", "summary",
			"description", "city_id", "district_id", "cover_image_url", "duration_minutes", "distance_km",
			"tags", "average_rating", "rating_count", "favorite_count", "is_published", "moderation_status").
		Values(row.ID, row.CreatedAt, row.UserID, row.AuthorName, row.AuthorAvatarURL, row.Title, row.Summary,
			row.Description, row.CityID, row.DistrictID, row.CoverImageURL, row.DurationMinutes, row.DistanceKm,
			row.Tags, row.AverageRating, row.RatingCount, row.FavoriteCount, row.IsPublished, row.ModerationStatus).
		ToSql()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to build insert: %w", err)
	}

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		l.Error("Failed to begin transaction", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return fmt.Errorf("%w: begin: %w", models.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				l.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	if _, err = tx.Exec(ctx, query, args...); err != nil {
		l.Error("Failed to insert route", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert route failed")
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: route %q", models.ErrConflict, route.ID)
		}
		return fmt.Errorf("%w: insert route: %w", models.ErrPersistence, err)
	}

	for _, stop := range route.Stops {
		if _, err = tx.Exec(ctx, `INSERT INTO route_stops (`+stopColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			toStopRow(route.ID, stop).values()...); err != nil {
			l.Error("Failed to insert route stop", zap.Int("order", stop.Order), zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert stop failed")
			return fmt.Errorf("%w: insert stop %d: %w", models.ErrPersistence, stop.Order, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		l.Error("Failed to commit transaction", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return fmt.Errorf("%w: commit: %w", models.ErrPersistence, err)
	}

	l.Info("Route created", zap.Bool("published", route.IsPublished))
	span.SetStatus(codes.Ok, "route created")
	return nil
}

// GetRoute returns a route with its stops regardless of publication state.
func (r *PostgresRepository) GetRoute(ctx context.Context, id string) (models.Route, error) {
	ctx, span := otel.Tracer("RouteRepository").Start(ctx, "GetRoute", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", id),
	))
	defer span.End()

	var row RouteRow
	err := r.pgpool.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id).Scan(row.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return models.Route{}, fmt.Errorf("route %q: %w", id, models.ErrNotFound)
		}
		r.logger.Error("Failed to fetch route", zap.String("route_id", id), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return models.Route{}, fmt.Errorf("%w: get route: %w", models.ErrPersistence, err)
	}

	stops, err := r.loadStops(ctx, []string{id})
	if err != nil {
		span.RecordError(err)
		return models.Route{}, err
	}

	span.SetStatus(codes.Ok, "route found")
	return fromRouteRow(row, stops[id]), nil
}

// LoadRoutes returns every route that is not rejected, oldest first, for the
// in-memory catalog.
func (r *PostgresRepository) LoadRoutes(ctx context.Context) ([]models.Route, error) {
	query, args, err := psql.Select(routeColumns).From("routes").
		Where(sq.NotEq{"moderation_status": string(models.ModerationRejected)}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.queryRoutes(ctx, "LoadRoutes", query, args)
}

// ListRoutes returns published routes matching the structured part of the
// filter. Text queries are matched by the caller, so no limit is applied
// when one is present.
func (r *PostgresRepository) ListRoutes(ctx context.Context, filter models.RouteFilter) ([]models.Route, error) {
	q := psql.Select(routeColumns).From("routes").Where(sq.Eq{"is_published": true})
	if filter.CityID != "" {
		q = q.Where(sq.Eq{"city_id": filter.CityID})
	}
	if filter.MinRating > 0 {
		q = q.Where(sq.GtOrEq{"average_rating": filter.MinRating})
	}
	switch filter.Sort {
	case models.RouteSortNewest:
		q = q.OrderBy("created_at DESC", "id")
	case models.RouteSortPopular:
		q = q.OrderBy("favorite_count DESC", "rating_count DESC", "id")
	default:
		q = q.OrderBy("average_rating DESC", "rating_count DESC", "id")
	}
	if filter.Limit > 0 && filter.Query == "" {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.queryRoutes(ctx, "ListRoutes", query, args)
}

// ListByAuthor returns every route of a user, newest first, whatever its
// moderation state. Authors that are not user ids own no stored routes.
func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.Route, error) {
	userID, err := uuid.Parse(authorID)
	if err != nil {
		return []models.Route{}, nil
	}
	query, args, err := psql.Select(routeColumns).From("routes").
		Where(sq.Eq{"user_id": userID.String()}).
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return r.queryRoutes(ctx, "ListByAuthor", query, args)
}

// UpdateRoute writes the editable fields of route.
func (r *PostgresRepository) UpdateRoute(ctx context.Context, route models.Route) error {
	ctx, span := otel.Tracer("RouteRepository").Start(ctx, "UpdateRoute", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", route.ID),
	))
	defer span.End()

	query, args, err := psql.Update("routes").
		Set("title", route.Title).
		Set("summary", route.Summary).
		Set("description", optString(route.Description)).
		Set("cover_image_url", optString(route.CoverImage)).
		Set("tags", nonNil(route.Tags)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": route.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update route", zap.String("route_id", route.ID), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("%w: update route: %w", models.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("route %q: %w", route.ID, models.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "route updated")
	return nil
}

func (r *PostgresRepository) queryRoutes(ctx context.Context, method, query string, args []any) ([]models.Route, error) {
	ctx, span := otel.Tracer("RouteRepository").Start(ctx, method, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
	))
	defer span.End()

	l := r.logger.With(zap.String("method", method))

	rows, err := r.pgpool.Query(ctx, query, args...)
	if err != nil {
		l.Error("Failed to query routes", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: query routes: %w", models.ErrPersistence, err)
	}

	routeRows := make([]RouteRow, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var row RouteRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			rows.Close()
			l.Error("Failed to scan route", zap.Error(err))
			span.RecordError(err)
			return nil, fmt.Errorf("%w: scan route: %w", models.ErrPersistence, err)
		}
		routeRows = append(routeRows, row)
		ids = append(ids, row.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: iterate routes: %w", models.ErrPersistence, err)
	}

	routes := make([]models.Route, 0, len(routeRows))
	if len(routeRows) == 0 {
		span.SetStatus(codes.Ok, "no routes")
		return routes, nil
	}

	stops, err := r.loadStops(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, row := range routeRows {
		routes = append(routes, fromRouteRow(row, stops[row.ID]))
	}

	span.SetAttributes(attribute.Int("routes.count", len(routes)))
	span.SetStatus(codes.Ok, "routes loaded")
	l.Debug("Routes loaded", zap.Int("count", len(routes)))
	return routes, nil
}

func (r *PostgresRepository) loadStops(ctx context.Context, routeIDs []string) (map[string][]StopRow, error) {
	rows, err := r.pgpool.Query(ctx, `SELECT `+stopColumns+` FROM route_stops
		WHERE route_id = ANY($1) ORDER BY route_id, order_index`, routeIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: query stops: %w", models.ErrPersistence, err)
	}
	defer rows.Close()

	byRoute := make(map[string][]StopRow, len(routeIDs))
	for rows.Next() {
		var s StopRow
		if err := rows.Scan(s.scanTargets()...); err != nil {
			return nil, fmt.Errorf("%w: scan stop: %w", models.ErrPersistence, err)
		}
		byRoute[s.RouteID] = append(byRoute[s.RouteID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate stops: %w", models.ErrPersistence, err)
	}
	return byRoute, nil
}

// DeleteRoute removes a route. Stops and ratings go with it.
func (r *PostgresRepository) DeleteRoute(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("RouteRepository").Start(ctx, "DeleteRoute", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", id),
	))
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete route", zap.String("route_id", id), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("%w: delete route: %w", models.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("route %q: %w", id, models.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "route deleted")
	return nil
}

// SetModerationStatus updates the status; only approved routes are published.
func (r *PostgresRepository) SetModerationStatus(ctx context.Context, id string, status models.ModerationStatus) error {
	ctx, span := otel.Tracer("RouteRepository").Start(ctx, "SetModerationStatus", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", id),
		attribute.String("route.moderation_status", string(status)),
	))
	defer span.End()

	query, args, err := psql.Update("routes").
		Set("moderation_status", string(status)).
		Set("is_published", status == models.ModerationApproved).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	tag, err := r.pgpool.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to moderate route", zap.String("route_id", id), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("%w: moderate route: %w", models.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("route %q: %w", id, models.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "route moderated")
	return nil
}
