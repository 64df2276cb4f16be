package ratings

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// Repository stores ratings and keeps each route's aggregate in step with
// them. Every write returns the aggregate it committed.
type Repository interface {
	CreateRating(ctx context.Context, rating models.RouteRating) (models.RatingSummary, error)
	ListByRoute(ctx context.Context, routeID string) ([]models.RouteRating, error)
	GetUserRating(ctx context.Context, routeID string, userID uuid.UUID) (models.RouteRating, error)
	UpdateRating(ctx context.Context, ratingID, userID uuid.UUID, score float64, comment *string) (models.RouteRating, models.RatingSummary, error)
	DeleteRating(ctx context.Context, ratingID, userID uuid.UUID) (models.RatingSummary, error)
	// RouteSummary reads the route's current aggregate.
	RouteSummary(ctx context.Context, routeID string) (models.RatingSummary, error)
}

const ratingColumns = `id, route_id, user_id, score::float8, comment, visited_at, created_at, updated_at`

// RatingRow is a route_ratings row.
type RatingRow struct {
	ID        uuid.UUID
	RouteID   string
	UserID    uuid.UUID
	Score     float64
	Comment   *string
	VisitedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *RatingRow) scanTargets() []any {
	return []any{&r.ID, &r.RouteID, &r.UserID, &r.Score, &r.Comment, &r.VisitedAt, &r.CreatedAt, &r.UpdatedAt}
}

func toRatingRow(r models.RouteRating) RatingRow {
	row := RatingRow{
		ID:        r.ID,
		RouteID:   r.RouteID,
		UserID:    r.UserID,
		Score:     r.Score,
		VisitedAt: r.VisitedAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Comment != "" {
		c := r.Comment
		row.Comment = &c
	}
	return row
}

func fromRatingRow(row RatingRow) models.RouteRating {
	r := models.RouteRating{
		ID:        row.ID,
		RouteID:   row.RouteID,
		UserID:    row.UserID,
		Score:     row.Score,
		VisitedAt: row.VisitedAt,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.Comment != nil {
		r.Comment = *row.Comment
	}
	return r
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

func (r *PostgresRepository) inTx(ctx context.Context, l *zap.Logger, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		l.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("%w: begin: %w", models.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				l.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		l.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("%w: commit: %w", models.ErrPersistence, err)
	}
	return nil
}

// CreateRating inserts the rating and folds it into the route aggregate. The
// route row is locked for the whole transaction so concurrent ratings of the
// same route apply one after another.
func (r *PostgresRepository) CreateRating(ctx context.Context, rating models.RouteRating) (models.RatingSummary, error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "CreateRating", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", rating.RouteID),
		attribute.String("user.id", rating.UserID.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "CreateRating"), zap.String("route_id", rating.RouteID))
	l.Debug("Creating rating")

	var agg Aggregate
	err := r.inTx(ctx, l, func(tx pgx.Tx) error {
		var (
			published bool
			authorID  *uuid.UUID
		)
		if err := tx.QueryRow(ctx, `SELECT average_rating, rating_count, is_published, user_id FROM routes WHERE id = $1 FOR UPDATE`,
			rating.RouteID).Scan(&agg.Average, &agg.Count, &published, &authorID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("route %q: %w", rating.RouteID, models.ErrNotFound)
			}
			return fmt.Errorf("%w: lock route: %w", models.ErrPersistence, err)
		}
		// Unpublished routes are hidden from everyone but their author.
		if !published && (authorID == nil || *authorID != rating.UserID) {
			return fmt.Errorf("route %q: %w", rating.RouteID, models.ErrNotFound)
		}

		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM route_ratings WHERE route_id = $1 AND user_id = $2)`,
			rating.RouteID, rating.UserID).Scan(&exists); err != nil {
			return fmt.Errorf("%w: check rating: %w", models.ErrPersistence, err)
		}
		if exists {
			return models.ErrAlreadyRated
		}

		row := toRatingRow(rating)
		if _, err := tx.Exec(ctx, `INSERT INTO route_ratings (id, route_id, user_id, score, comment, visited_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			row.ID, row.RouteID, row.UserID, row.Score, row.Comment, row.VisitedAt, row.CreatedAt, row.UpdatedAt); err != nil {
			if database.IsUniqueViolation(err) {
				return models.ErrAlreadyRated
			}
			return fmt.Errorf("%w: insert rating: %w", models.ErrPersistence, err)
		}

		agg = agg.Add(rating.Score)
		return storeAggregate(ctx, tx, rating.RouteID, agg)
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyRated):
			l.Warn("Route already rated by user")
		case errors.Is(err, models.ErrNotFound):
			l.Debug("Route not found for rating")
		default:
			l.Error("Failed to create rating", zap.Error(err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return models.RatingSummary{}, err
	}

	l.Info("Rating created", zap.Float64("average", agg.Average), zap.Int("count", agg.Count))
	span.SetStatus(codes.Ok, "rating created")
	return agg.Summary(rating.RouteID), nil
}

// ListByRoute returns a route's ratings, newest first.
func (r *PostgresRepository) ListByRoute(ctx context.Context, routeID string) ([]models.RouteRating, error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "ListByRoute", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", routeID),
	))
	defer span.End()

	rows, err := r.pgpool.Query(ctx, `SELECT `+ratingColumns+` FROM route_ratings
		WHERE route_id = $1 ORDER BY created_at DESC, id`, routeID)
	if err != nil {
		r.logger.Error("Failed to query ratings", zap.String("route_id", routeID), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: query ratings: %w", models.ErrPersistence, err)
	}
	defer rows.Close()

	ratings := make([]models.RouteRating, 0)
	for rows.Next() {
		var row RatingRow
		if err := rows.Scan(row.scanTargets()...); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: scan rating: %w", models.ErrPersistence, err)
		}
		ratings = append(ratings, fromRatingRow(row))
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: iterate ratings: %w", models.ErrPersistence, err)
	}

	span.SetAttributes(attribute.Int("ratings.count", len(ratings)))
	span.SetStatus(codes.Ok, "ratings listed")
	return ratings, nil
}

func (r *PostgresRepository) GetUserRating(ctx context.Context, routeID string, userID uuid.UUID) (models.RouteRating, error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "GetUserRating", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", routeID),
	))
	defer span.End()

	var row RatingRow
	err := r.pgpool.QueryRow(ctx, `SELECT `+ratingColumns+` FROM route_ratings WHERE route_id = $1 AND user_id = $2`,
		routeID, userID).Scan(row.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return models.RouteRating{}, fmt.Errorf("rating for route %q: %w", routeID, models.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return models.RouteRating{}, fmt.Errorf("%w: get rating: %w", models.ErrPersistence, err)
	}

	span.SetStatus(codes.Ok, "rating found")
	return fromRatingRow(row), nil
}

// UpdateRating changes the score and, when given, the comment of a rating
// owned by userID, then recomputes the route aggregate from all ratings.
func (r *PostgresRepository) UpdateRating(ctx context.Context, ratingID, userID uuid.UUID, score float64, comment *string) (models.RouteRating, models.RatingSummary, error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "UpdateRating", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("rating.id", ratingID.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "UpdateRating"), zap.String("rating_id", ratingID.String()))

	var (
		row RatingRow
		agg Aggregate
	)
	err := r.inTx(ctx, l, func(tx pgx.Tx) error {
		routeID, err := lockOwnedRating(ctx, tx, ratingID, userID)
		if err != nil {
			return err
		}

		if err := tx.QueryRow(ctx, `UPDATE route_ratings SET score = $1, comment = COALESCE($2, comment), updated_at = NOW()
			WHERE id = $3 RETURNING `+ratingColumns, score, comment, ratingID).Scan(row.scanTargets()...); err != nil {
			return fmt.Errorf("%w: update rating: %w", models.ErrPersistence, err)
		}

		agg, err = recompute(ctx, tx, routeID)
		if err != nil {
			return err
		}
		return storeAggregate(ctx, tx, routeID, agg)
	})
	if err != nil {
		l.Warn("Failed to update rating", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return models.RouteRating{}, models.RatingSummary{}, err
	}

	l.Info("Rating updated", zap.Float64("average", agg.Average), zap.Int("count", agg.Count))
	span.SetStatus(codes.Ok, "rating updated")
	return fromRatingRow(row), agg.Summary(row.RouteID), nil
}

// DeleteRating removes a rating owned by userID and recomputes the route
// aggregate.
func (r *PostgresRepository) DeleteRating(ctx context.Context, ratingID, userID uuid.UUID) (models.RatingSummary, error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "DeleteRating", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("rating.id", ratingID.String()),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "DeleteRating"), zap.String("rating_id", ratingID.String()))

	var (
		routeID string
		agg     Aggregate
	)
	err := r.inTx(ctx, l, func(tx pgx.Tx) error {
		var err error
		routeID, err = lockOwnedRating(ctx, tx, ratingID, userID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM route_ratings WHERE id = $1`, ratingID); err != nil {
			return fmt.Errorf("%w: delete rating: %w", models.ErrPersistence, err)
		}

		agg, err = recompute(ctx, tx, routeID)
		if err != nil {
			return err
		}
		return storeAggregate(ctx, tx, routeID, agg)
	})
	if err != nil {
		l.Warn("Failed to delete rating", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return models.RatingSummary{}, err
	}

	l.Info("Rating deleted", zap.Float64("average", agg.Average), zap.Int("count", agg.Count))
	span.SetStatus(codes.Ok, "rating deleted")
	return agg.Summary(routeID), nil
}

func (r *PostgresRepository) RouteSummary(ctx context.Context, routeID string) (models.RatingSummary, error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "RouteSummary", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("route.id", routeID),
	))
	defer span.End()

	var agg Aggregate
	err := r.pgpool.QueryRow(ctx, `SELECT average_rating, rating_count FROM routes WHERE id = $1`, routeID).
		Scan(&agg.Average, &agg.Count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return models.RatingSummary{}, fmt.Errorf("route %q: %w", routeID, models.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return models.RatingSummary{}, fmt.Errorf("%w: read aggregate: %w", models.ErrPersistence, err)
	}
	span.SetStatus(codes.Ok, "aggregate read")
	return agg.Summary(routeID), nil
}

// lockOwnedRating checks ownership of a rating and locks its route. It
// returns the route id.
func lockOwnedRating(ctx context.Context, tx pgx.Tx, ratingID, userID uuid.UUID) (string, error) {
	var (
		routeID string
		ownerID uuid.UUID
	)
	if err := tx.QueryRow(ctx, `SELECT route_id, user_id FROM route_ratings WHERE id = $1`, ratingID).
		Scan(&routeID, &ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("rating %s: %w", ratingID, models.ErrNotFound)
		}
		return "", fmt.Errorf("%w: get rating: %w", models.ErrPersistence, err)
	}
	if ownerID != userID {
		return "", fmt.Errorf("rating %s: %w", ratingID, models.ErrForbidden)
	}

	var locked string
	if err := tx.QueryRow(ctx, `SELECT id FROM routes WHERE id = $1 FOR UPDATE`, routeID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("route %q: %w", routeID, models.ErrNotFound)
		}
		return "", fmt.Errorf("%w: lock route: %w", models.ErrPersistence, err)
	}
	return routeID, nil
}

func recompute(ctx context.Context, tx pgx.Tx, routeID string) (Aggregate, error) {
	rows, err := tx.Query(ctx, `SELECT score::float8 FROM route_ratings WHERE route_id = $1`, routeID)
	if err != nil {
		return Aggregate{}, fmt.Errorf("%w: query scores: %w", models.ErrPersistence, err)
	}
	defer rows.Close()

	scores := make([]float64, 0)
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return Aggregate{}, fmt.Errorf("%w: scan score: %w", models.ErrPersistence, err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return Aggregate{}, fmt.Errorf("%w: iterate scores: %w", models.ErrPersistence, err)
	}
	return Recompute(scores), nil
}

func storeAggregate(ctx context.Context, tx pgx.Tx, routeID string, agg Aggregate) error {
	if _, err := tx.Exec(ctx, `UPDATE routes SET average_rating = $1, rating_count = $2, updated_at = NOW() WHERE id = $3`,
		agg.Average, agg.Count, routeID); err != nil {
		return fmt.Errorf("%w: update aggregate: %w", models.ErrPersistence, err)
	}
	return nil
}
