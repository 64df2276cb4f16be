package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/models"
)

const (
	maxNameLength = 100
	maxBioLength  = 280
)

// Service reads and edits profiles. A nil repository means profiles are
// unavailable and every call fails with ErrNotConfigured.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) available() error {
	if s.repo == nil {
		return fmt.Errorf("%w: profiles are disabled", models.ErrNotConfigured)
	}
	return nil
}

// GetOrCreate returns the user's profile, creating a placeholder when the
// row is missing.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID, email string) (models.UserProfile, error) {
	l := s.logger.With(zap.String("method", "GetOrCreate"), zap.String("userID", userID.String()))
	if err := s.available(); err != nil {
		return models.UserProfile{}, err
	}

	p, err := s.repo.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.UserProfile{}, err
	}

	l.Info("Creating placeholder profile")
	if err := s.repo.CreateProfile(ctx, userID, email); err != nil {
		return models.UserProfile{}, err
	}
	return s.repo.GetProfile(ctx, userID)
}

// Update applies the set fields of params. An empty patch changes nothing.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, email string, params models.UpdateProfileParams) (models.UserProfile, error) {
	if err := s.available(); err != nil {
		return models.UserProfile{}, err
	}

	params = normalize(params)
	if err := validate(params); err != nil {
		return models.UserProfile{}, err
	}
	if params.Empty() {
		return s.GetOrCreate(ctx, userID, email)
	}

	p, err := s.repo.UpdateProfile(ctx, userID, params)
	if errors.Is(err, models.ErrNotFound) {
		if _, err := s.GetOrCreate(ctx, userID, email); err != nil {
			return models.UserProfile{}, err
		}
		p, err = s.repo.UpdateProfile(ctx, userID, params)
	}
	if err != nil {
		return models.UserProfile{}, err
	}
	s.logger.Debug("Profile updated", zap.String("userID", userID.String()))
	return p, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func normalize(p models.UpdateProfileParams) models.UpdateProfileParams {
	return models.UpdateProfileParams{
		FullName:     trimmed(p.FullName),
		Phone:        trimmed(p.Phone),
		Bio:          trimmed(p.Bio),
		AvatarURL:    trimmed(p.AvatarURL),
		CityCode:     trimmed(p.CityCode),
		DistrictCode: trimmed(p.DistrictCode),
	}
}

func validate(p models.UpdateProfileParams) error {
	if p.FullName != nil && utf8.RuneCountInString(*p.FullName) > maxNameLength {
		return fmt.Errorf("%w: name cannot exceed %d characters", models.ErrValidation, maxNameLength)
	}
	if p.Bio != nil && utf8.RuneCountInString(*p.Bio) > maxBioLength {
		return fmt.Errorf("%w: bio cannot exceed %d characters", models.ErrValidation, maxBioLength)
	}
	return nil
}
