package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

// Repository persists favorites of signed-in users. Add and Remove report
// whether the row actually changed.
type Repository interface {
	ListRouteIDs(ctx context.Context, userID uuid.UUID) ([]string, error)
	Add(ctx context.Context, userID uuid.UUID, routeID string) (bool, error)
	Remove(ctx context.Context, userID uuid.UUID, routeID string) (bool, error)
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

func (r *PostgresRepository) ListRouteIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ctx, span := otel.Tracer("FavoritesRepository").Start(ctx, "ListRouteIDs", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `SELECT route_id FROM favorites WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		r.logger.Error("Failed to query favorites", zap.String("user_id", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: list favorites: %w", models.ErrPersistence, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: scan favorite: %w", models.ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: iterate favorites: %w", models.ErrPersistence, err)
	}

	span.SetStatus(codes.Ok, "favorites listed")
	return ids, nil
}

// Add inserts the favorite and bumps the route counter in one transaction.
func (r *PostgresRepository) Add(ctx context.Context, userID uuid.UUID, routeID string) (bool, error) {
	return r.change(ctx, "Add", userID, routeID,
		`INSERT INTO favorites (user_id, route_id) VALUES ($1, $2) ON CONFLICT (user_id, route_id) DO NOTHING`,
		`UPDATE routes SET favorite_count = favorite_count + 1 WHERE id = $1`)
}

// Remove deletes the favorite and lowers the route counter in one transaction.
func (r *PostgresRepository) Remove(ctx context.Context, userID uuid.UUID, routeID string) (bool, error) {
	return r.change(ctx, "Remove", userID, routeID,
		`DELETE FROM favorites WHERE user_id = $1 AND route_id = $2`,
		`UPDATE routes SET favorite_count = GREATEST(favorite_count - 1, 0) WHERE id = $1`)
}

func (r *PostgresRepository) change(ctx context.Context, method string, userID uuid.UUID, routeID, favoriteSQL, counterSQL string) (changed bool, err error) {
	ctx, span := otel.Tracer("FavoritesRepository").Start(ctx, method, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("user.id", userID.String()),
		attribute.String("route.id", routeID),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", method), zap.String("route_id", routeID))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return false, fmt.Errorf("%w: begin: %w", models.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				l.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	tag, err := tx.Exec(ctx, favoriteSQL, userID, routeID)
	if err != nil {
		l.Error("Failed to change favorite", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "favorite write failed")
		return false, fmt.Errorf("%w: %s favorite: %w", models.ErrPersistence, method, err)
	}
	changed = tag.RowsAffected() == 1

	if changed {
		if _, err = tx.Exec(ctx, counterSQL, routeID); err != nil {
			l.Error("Failed to update favorite counter", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "counter update failed")
			return false, fmt.Errorf("%w: favorite counter: %w", models.ErrPersistence, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return false, fmt.Errorf("%w: commit: %w", models.ErrPersistence, err)
	}

	span.SetAttributes(attribute.Bool("changed", changed))
	span.SetStatus(codes.Ok, "favorite changed")
	return changed, nil
}
