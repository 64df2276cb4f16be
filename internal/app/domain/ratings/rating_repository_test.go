package ratings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

func newRating(routeID string, userID uuid.UUID, score float64) models.RouteRating {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return models.RouteRating{
		ID:        uuid.New(),
		RouteID:   routeID,
		UserID:    userID,
		Score:     score,
		Comment:   "Lovely",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var lockColumns = []string{"average_rating", "rating_count", "is_published", "user_id"}

// lockedRoute is the locked row of a published seed route.
func lockedRoute(avg float64, count int) *pgxmock.Rows {
	return pgxmock.NewRows(lockColumns).AddRow(avg, count, true, (*uuid.UUID)(nil))
}

func TestRatingRowMapping(t *testing.T) {
	visited := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	r := newRating("r1", uuid.New(), 4.5)
	r.VisitedAt = &visited
	assert.Equal(t, r, fromRatingRow(toRatingRow(r)))

	r.Comment = ""
	row := toRatingRow(r)
	assert.Nil(t, row.Comment)
	assert.Equal(t, r, fromRatingRow(row))
}

func TestPostgresRepository_CreateRating(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name    string
		setup   func(m pgxmock.PgxPoolIface, rating models.RouteRating)
		want    models.RatingSummary
		wantErr error
	}{
		{
			name: "folds score into aggregate",
			setup: func(m pgxmock.PgxPoolIface, rating models.RouteRating) {
				m.ExpectBegin()
				m.ExpectQuery(`SELECT average_rating, rating_count, is_published, user_id FROM routes WHERE id = \$1 FOR UPDATE`).
					WithArgs("r1").
					WillReturnRows(lockedRoute(4.0, 3))
				m.ExpectQuery(`SELECT EXISTS`).WithArgs("r1", userID).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
				m.ExpectExec(`INSERT INTO route_ratings`).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				m.ExpectExec(`UPDATE routes SET average_rating = \$1, rating_count = \$2`).
					WithArgs(3.5, 4, "r1").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				m.ExpectCommit()
			},
			want: models.RatingSummary{RouteID: "r1", AverageRating: 3.5, RatingCount: 4},
		},
		{
			name: "first rating sets the average",
			setup: func(m pgxmock.PgxPoolIface, rating models.RouteRating) {
				m.ExpectBegin()
				m.ExpectQuery(`FOR UPDATE`).WithArgs("r1").
					WillReturnRows(lockedRoute(0.0, 0))
				m.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
				m.ExpectExec(`INSERT INTO route_ratings`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
				m.ExpectExec(`UPDATE routes`).WithArgs(2.0, 1, "r1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				m.ExpectCommit()
			},
			want: models.RatingSummary{RouteID: "r1", AverageRating: 2, RatingCount: 1},
		},
		{
			name: "existing rating is refused without touching the route",
			setup: func(m pgxmock.PgxPoolIface, rating models.RouteRating) {
				m.ExpectBegin()
				m.ExpectQuery(`FOR UPDATE`).WithArgs("r1").
					WillReturnRows(lockedRoute(4.0, 3))
				m.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
				m.ExpectRollback()
			},
			wantErr: models.ErrAlreadyRated,
		},
		{
			name: "unique violation maps to already rated",
			setup: func(m pgxmock.PgxPoolIface, rating models.RouteRating) {
				m.ExpectBegin()
				m.ExpectQuery(`FOR UPDATE`).WithArgs("r1").
					WillReturnRows(lockedRoute(4.0, 3))
				m.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
				m.ExpectExec(`INSERT INTO route_ratings`).WillReturnError(&pgconn.PgError{Code: "23505"})
				m.ExpectRollback()
			},
			wantErr: models.ErrAlreadyRated,
		},
		{
			name: "unknown route",
			setup: func(m pgxmock.PgxPoolIface, rating models.RouteRating) {
				m.ExpectBegin()
				m.ExpectQuery(`FOR UPDATE`).WithArgs("r1").
					WillReturnRows(pgxmock.NewRows(lockColumns))
				m.ExpectRollback()
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "unpublished route of another author",
			setup: func(m pgxmock.PgxPoolIface, rating models.RouteRating) {
				other := uuid.New()
				m.ExpectBegin()
				m.ExpectQuery(`FOR UPDATE`).WithArgs("r1").
					WillReturnRows(pgxmock.NewRows(lockColumns).AddRow(0.0, 0, false, &other))
				m.ExpectRollback()
			},
			wantErr: models.ErrNotFound,
		},
		{
			name: "author rates own pending route",
			setup: func(m pgxmock.PgxPoolIface, rating models.RouteRating) {
				m.ExpectBegin()
				m.ExpectQuery(`FOR UPDATE`).WithArgs("r1").
					WillReturnRows(pgxmock.NewRows(lockColumns).AddRow(0.0, 0, false, &userID))
				m.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
				m.ExpectExec(`INSERT INTO route_ratings`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
				m.ExpectExec(`UPDATE routes`).WithArgs(2.0, 1, "r1").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				m.ExpectCommit()
			},
			want: models.RatingSummary{RouteID: "r1", AverageRating: 2, RatingCount: 1},
		},
		{
			name: "aggregate write failure rolls back",
			setup: func(m pgxmock.PgxPoolIface, rating models.RouteRating) {
				m.ExpectBegin()
				m.ExpectQuery(`FOR UPDATE`).WithArgs("r1").
					WillReturnRows(lockedRoute(4.0, 3))
				m.ExpectQuery(`SELECT EXISTS`).
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
				m.ExpectExec(`INSERT INTO route_ratings`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
				m.ExpectExec(`UPDATE routes`).WillReturnError(errors.New("connection reset"))
				m.ExpectRollback()
			},
			wantErr: models.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mockPool.Close()

			rating := newRating("r1", userID, 2)
			tt.setup(mockPool, rating)

			got, err := NewPostgresRepository(mockPool, zap.NewNop()).CreateRating(ctx, rating)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want.RouteID, got.RouteID)
				assert.Equal(t, tt.want.RatingCount, got.RatingCount)
				assert.InDelta(t, tt.want.AverageRating, got.AverageRating, 1e-9)
			}
			assert.NoError(t, mockPool.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_UpdateRating(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	ratingID := uuid.New()
	now := time.Now().UTC()
	comment := "Even better"

	t.Run("recomputes from all scores", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`SELECT route_id, user_id FROM route_ratings WHERE id = \$1`).WithArgs(ratingID).
			WillReturnRows(pgxmock.NewRows([]string{"route_id", "user_id"}).AddRow("r1", userID))
		mockPool.ExpectQuery(`SELECT id FROM routes WHERE id = \$1 FOR UPDATE`).WithArgs("r1").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("r1"))
		mockPool.ExpectQuery(`UPDATE route_ratings SET score`).WithArgs(5.0, &comment, ratingID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "route_id", "user_id", "score", "comment", "visited_at", "created_at", "updated_at"}).
				AddRow(ratingID, "r1", userID, 5.0, &comment, (*time.Time)(nil), now, now))
		mockPool.ExpectQuery(`SELECT score::float8 FROM route_ratings WHERE route_id = \$1`).WithArgs("r1").
			WillReturnRows(pgxmock.NewRows([]string{"score"}).AddRow(5.0).AddRow(3.0).AddRow(4.0))
		mockPool.ExpectExec(`UPDATE routes SET average_rating`).WithArgs(4.0, 3, "r1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()

		rating, summary, err := NewPostgresRepository(mockPool, zap.NewNop()).
			UpdateRating(ctx, ratingID, userID, 5, &comment)
		require.NoError(t, err)
		assert.Equal(t, 5.0, rating.Score)
		assert.Equal(t, comment, rating.Comment)
		assert.Equal(t, models.RatingSummary{RouteID: "r1", AverageRating: 4, RatingCount: 3}, summary)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("other users are refused", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`SELECT route_id, user_id FROM route_ratings`).WithArgs(ratingID).
			WillReturnRows(pgxmock.NewRows([]string{"route_id", "user_id"}).AddRow("r1", uuid.New()))
		mockPool.ExpectRollback()

		_, _, err = NewPostgresRepository(mockPool, zap.NewNop()).UpdateRating(ctx, ratingID, userID, 5, nil)
		assert.ErrorIs(t, err, models.ErrForbidden)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresRepository_DeleteRating(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	ratingID := uuid.New()

	t.Run("last rating resets the aggregate", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`SELECT route_id, user_id FROM route_ratings`).WithArgs(ratingID).
			WillReturnRows(pgxmock.NewRows([]string{"route_id", "user_id"}).AddRow("r1", userID))
		mockPool.ExpectQuery(`FOR UPDATE`).WithArgs("r1").
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("r1"))
		mockPool.ExpectExec(`DELETE FROM route_ratings WHERE id = \$1`).WithArgs(ratingID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mockPool.ExpectQuery(`SELECT score::float8`).WithArgs("r1").
			WillReturnRows(pgxmock.NewRows([]string{"score"}))
		mockPool.ExpectExec(`UPDATE routes SET average_rating`).WithArgs(0.0, 0, "r1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mockPool.ExpectCommit()

		summary, err := NewPostgresRepository(mockPool, zap.NewNop()).DeleteRating(ctx, ratingID, userID)
		require.NoError(t, err)
		assert.Equal(t, models.RatingSummary{RouteID: "r1"}, summary)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("missing rating", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery(`SELECT route_id, user_id FROM route_ratings`).WithArgs(ratingID).
			WillReturnRows(pgxmock.NewRows([]string{"route_id", "user_id"}))
		mockPool.ExpectRollback()

		_, err = NewPostgresRepository(mockPool, zap.NewNop()).DeleteRating(ctx, ratingID, userID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresRepository_ListByRoute(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	userID := uuid.New()
	id := uuid.New()
	now := time.Now().UTC()
	mockPool.ExpectQuery(`SELECT id, route_id, user_id, score::float8, comment, visited_at, created_at, updated_at FROM route_ratings`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "route_id", "user_id", "score", "comment", "visited_at", "created_at", "updated_at"}).
			AddRow(id, "r1", userID, 4.5, (*string)(nil), (*time.Time)(nil), now, now))

	got, err := NewPostgresRepository(mockPool, zap.NewNop()).ListByRoute(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.RouteRating{ID: id, RouteID: "r1", UserID: userID, Score: 4.5, CreatedAt: now, UpdatedAt: now}, got[0])
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresRepository_RouteSummary(t *testing.T) {
	ctx := context.Background()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectQuery(`SELECT average_rating, rating_count FROM routes WHERE id = \$1`).WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"average_rating", "rating_count"}).AddRow(3.5, 4))
	mockPool.ExpectQuery(`SELECT average_rating, rating_count FROM routes WHERE id = \$1`).WithArgs("gone").
		WillReturnRows(pgxmock.NewRows([]string{"average_rating", "rating_count"}))

	repo := NewPostgresRepository(mockPool, zap.NewNop())
	got, err := repo.RouteSummary(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RatingSummary{RouteID: "r1", AverageRating: 3.5, RatingCount: 4}, got)

	_, err = repo.RouteSummary(ctx, "gone")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
