package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
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

// Repository persists user profiles. Profiles are never deleted.
type Repository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (models.UserProfile, error)
	CreateProfile(ctx context.Context, userID uuid.UUID, email string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, params models.UpdateProfileParams) (models.UserProfile, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const profileColumns = "id, email, full_name, phone, bio, avatar_url, city_code, district_code, created_at, updated_at"

// ProfileRow is the profiles table as stored.
type ProfileRow struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	Phone        *string
	Bio          *string
	AvatarURL    *string
	CityCode     *string
	DistrictCode *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *ProfileRow) scanTargets() []any {
	return []any{&r.ID, &r.Email, &r.FullName, &r.Phone, &r.Bio, &r.AvatarURL,
		&r.CityCode, &r.DistrictCode, &r.CreatedAt, &r.UpdatedAt}
}

func fromProfileRow(r ProfileRow) models.UserProfile {
	return models.UserProfile{
		ID:           r.ID,
		Email:        r.Email,
		FullName:     r.FullName,
		Phone:        r.Phone,
		Bio:          r.Bio,
		AvatarURL:    r.AvatarURL,
		CityCode:     r.CityCode,
		DistrictCode: r.DistrictCode,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toProfileRow(p models.UserProfile) ProfileRow {
	return ProfileRow{
		ID:           p.ID,
		Email:        p.Email,
		FullName:     p.FullName,
		Phone:        p.Phone,
		Bio:          p.Bio,
		AvatarURL:    p.AvatarURL,
		CityCode:     p.CityCode,
		DistrictCode: p.DistrictCode,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type PostgresRepository struct {
	logger *zap.Logger
	pgpool database.Pool
}

func NewPostgresRepository(pgpool database.Pool, logger *zap.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, pgpool: pgpool}
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	ctx, span := otel.Tracer("ProfileRepository").Start(ctx, "GetProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	var row ProfileRow
	err := r.pgpool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID).Scan(row.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return models.UserProfile{}, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
		}
		r.logger.Error("Failed to fetch profile", zap.String("userID", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return models.UserProfile{}, fmt.Errorf("%w: fetching profile: %w", models.ErrPersistence, err)
	}

	span.SetStatus(codes.Ok, "profile found")
	return fromProfileRow(row), nil
}

// CreateProfile inserts a placeholder profile. An existing row is left as is.
func (r *PostgresRepository) CreateProfile(ctx context.Context, userID uuid.UUID, email string) error {
	ctx, span := otel.Tracer("ProfileRepository").Start(ctx, "CreateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	_, err := r.pgpool.Exec(ctx, `INSERT INTO profiles (id, email, full_name) VALUES ($1, $2, '')
		ON CONFLICT (id) DO NOTHING`, userID, email)
	if err != nil {
		r.logger.Error("Failed to create profile", zap.String("userID", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return fmt.Errorf("%w: creating profile: %w", models.ErrPersistence, err)
	}
	span.SetStatus(codes.Ok, "profile created")
	return nil
}

// UpdateProfile writes only the fields set in params.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, params models.UpdateProfileParams) (models.UserProfile, error) {
	ctx, span := otel.Tracer("ProfileRepository").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	q := psql.Update("profiles")
	if params.FullName != nil {
		q = q.Set("full_name", *params.FullName)
	}
	if params.Phone != nil {
		q = q.Set("phone", *params.Phone)
	}
	if params.Bio != nil {
		q = q.Set("bio", *params.Bio)
	}
	if params.AvatarURL != nil {
		q = q.Set("avatar_url", *params.AvatarURL)
	}
	if params.CityCode != nil {
		q = q.Set("city_code", *params.CityCode)
	}
	if params.DistrictCode != nil {
		q = q.Set("district_code", *params.DistrictCode)
	}

	query, args, err := q.
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": userID}).
		Suffix("RETURNING " + profileColumns).
		ToSql()
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to build update: %w", err)
	}

	var row ProfileRow
	if err := r.pgpool.QueryRow(ctx, query, args...).Scan(row.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return models.UserProfile{}, fmt.Errorf("profile %s: %w", userID, models.ErrNotFound)
		}
		r.logger.Error("Failed to update profile", zap.String("userID", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return models.UserProfile{}, fmt.Errorf("%w: updating profile: %w", models.ErrPersistence, err)
	}

	span.SetStatus(codes.Ok, "profile updated")
	return fromProfileRow(row), nil
}
