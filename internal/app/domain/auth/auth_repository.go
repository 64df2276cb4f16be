package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

var _ AuthRepo = (*PostgresAuthRepo)(nil)

type AuthRepo interface {
	// GetUserByEmail fetches user details needed for validation/token generation.
	GetUserByEmail(ctx context.Context, email string) (*models.UserAuth, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserAuth, error)
	// Register stores a new user with a HASHED password and a placeholder
	// profile. Returns the new user ID.
	Register(ctx context.Context, email, hashedPassword, fullName string) (uuid.UUID, error)
	// UpdatePassword updates the user's HASHED password.
	UpdatePassword(ctx context.Context, userID uuid.UUID, newHashedPassword string) error

	// --- Refresh Token Handling ---
	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	ValidateRefreshTokenAndGetUserID(ctx context.Context, refreshToken string) (uuid.UUID, error)
	InvalidateRefreshToken(ctx context.Context, refreshToken string) error
	InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

type PostgresAuthRepo struct {
	logger *zap.Logger
	pgpool database.Pool
}

func NewPostgresAuthRepo(pgpool database.Pool, logger *zap.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*models.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepository").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
	))
	defer span.End()

	var user models.UserAuth
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = $1 AND is_active = TRUE`
	err := r.pgpool.QueryRow(ctx, query, normalizeEmail(email)).Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("user with email %s not found: %w", email, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by email", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: fetching user: %w", models.ErrPersistence, err)
	}
	span.SetStatus(codes.Ok, "user found")
	return &user, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepository").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	var user models.UserAuth
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = $1 AND is_active = TRUE`
	err := r.pgpool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("user with ID %s not found: %w", userID, models.ErrNotFound)
		}
		r.logger.Error("Error fetching user by ID", zap.String("userID", userID.String()), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: fetching user by ID: %w", models.ErrPersistence, err)
	}
	span.SetStatus(codes.Ok, "user found")
	return &user, nil
}

// Register inserts the user and its placeholder profile in one transaction.
func (r *PostgresAuthRepo) Register(ctx context.Context, email, hashedPassword, fullName string) (_ uuid.UUID, err error) {
	ctx, span := otel.Tracer("AuthRepository").Start(ctx, "Register", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.statement", "INSERT INTO users ..."),
	))
	defer span.End()

	l := r.logger.With(zap.String("method", "Register"))
	email = normalizeEmail(email)
	userID := uuid.New()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return uuid.Nil, fmt.Errorf("%w: begin: %w", models.ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				l.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	if _, err = tx.Exec(ctx, `INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		userID, email, hashedPassword, time.Now()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert user failed")
		if database.IsUniqueViolation(err) {
			return uuid.Nil, fmt.Errorf("email already exists: %w", models.ErrConflict)
		}
		l.Error("Error inserting user", zap.Error(err))
		return uuid.Nil, fmt.Errorf("%w: registering user: %w", models.ErrPersistence, err)
	}

	if _, err = tx.Exec(ctx, `INSERT INTO profiles (id, email, full_name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`, userID, email, strings.TrimSpace(fullName)); err != nil {
		l.Error("Error inserting profile", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert profile failed")
		return uuid.Nil, fmt.Errorf("%w: creating profile: %w", models.ErrPersistence, err)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return uuid.Nil, fmt.Errorf("%w: commit: %w", models.ErrPersistence, err)
	}

	span.SetStatus(codes.Ok, "User and profile created")
	l.Info("User registered successfully", zap.String("userID", userID.String()))
	return userID, nil
}

func (r *PostgresAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, newHashedPassword string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2 AND is_active = TRUE`
	tag, err := r.pgpool.Exec(ctx, query, newHashedPassword, userID)
	if err != nil {
		r.logger.Error("Error updating password hash", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("%w: updating password: %w", models.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("User not found during password update", zap.String("userID", userID.String()))
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	return nil
}

func (r *PostgresAuthRepo) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	query := `INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`
	if _, err := r.pgpool.Exec(ctx, query, userID, token, expiresAt); err != nil {
		r.logger.Error("Error storing refresh token", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("%w: storing refresh token: %w", models.ErrPersistence, err)
	}
	return nil
}

// ValidateRefreshTokenAndGetUserID returns the owner of a live refresh token.
func (r *PostgresAuthRepo) ValidateRefreshTokenAndGetUserID(ctx context.Context, refreshToken string) (uuid.UUID, error) {
	var (
		userID    uuid.UUID
		expiresAt time.Time
		revokedAt *time.Time
	)

	query := `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token = $1`
	err := r.pgpool.QueryRow(ctx, query, refreshToken).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("refresh token not found: %w", models.ErrUnauthenticated)
		}
		r.logger.Error("Error querying refresh token", zap.Error(err))
		return uuid.Nil, fmt.Errorf("%w: validating refresh token: %w", models.ErrPersistence, err)
	}

	if revokedAt != nil {
		return uuid.Nil, fmt.Errorf("refresh token has been revoked: %w", models.ErrUnauthenticated)
	}
	if time.Now().After(expiresAt) {
		return uuid.Nil, fmt.Errorf("refresh token has expired: %w", models.ErrUnauthenticated)
	}
	return userID, nil
}

func (r *PostgresAuthRepo) InvalidateRefreshToken(ctx context.Context, refreshToken string) error {
	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE token = $1 AND revoked_at IS NULL`
	tag, err := r.pgpool.Exec(ctx, query, refreshToken)
	if err != nil {
		r.logger.Error("Error invalidating refresh token", zap.Error(err))
		return fmt.Errorf("%w: invalidating token: %w", models.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Refresh token not found or already invalidated")
	}
	return nil
}

func (r *PostgresAuthRepo) InvalidateAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`
	tag, err := r.pgpool.Exec(ctx, query, userID)
	if err != nil {
		r.logger.Error("Error invalidating all refresh tokens for user", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("%w: invalidating tokens: %w", models.ErrPersistence, err)
	}
	r.logger.Debug("Refresh tokens revoked", zap.String("userID", userID.String()), zap.Int64("count", tag.RowsAffected()))
	return nil
}
