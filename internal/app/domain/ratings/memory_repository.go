package ratings

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps ratings in process for demo sessions. Routes come
// with a seeded aggregate that has no rating records behind it; that
// aggregate is kept as an opaque baseline and merged into every recompute.
type MemoryRepository struct {
	store *catalog.Store

	mu       sync.Mutex
	ratings  map[uuid.UUID]models.RouteRating
	baseline map[string]Aggregate
	now      func() time.Time
}

func NewMemoryRepository(store *catalog.Store) *MemoryRepository {
	return &MemoryRepository{
		store:    store,
		ratings:  make(map[uuid.UUID]models.RouteRating),
		baseline: make(map[string]Aggregate),
		now:      time.Now,
	}
}

func (m *MemoryRepository) CreateRating(_ context.Context, rating models.RouteRating) (models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	route, ok := m.store.Snapshot().GetRouteByID(rating.RouteID)
	if !ok {
		return models.RatingSummary{}, fmt.Errorf("route %q: %w", rating.RouteID, models.ErrNotFound)
	}
	for _, r := range m.ratings {
		if r.RouteID == rating.RouteID && r.UserID == rating.UserID {
			return models.RatingSummary{}, models.ErrAlreadyRated
		}
	}
	m.keepBaseline(route)

	m.ratings[rating.ID] = rating
	return m.aggregate(route.ID).Summary(route.ID), nil
}

func (m *MemoryRepository) ListByRoute(_ context.Context, routeID string) ([]models.RouteRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.RouteRating, 0)
	for _, r := range m.ratings {
		if r.RouteID == routeID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b models.RouteRating) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (m *MemoryRepository) GetUserRating(_ context.Context, routeID string, userID uuid.UUID) (models.RouteRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.ratings {
		if r.RouteID == routeID && r.UserID == userID {
			return r, nil
		}
	}
	return models.RouteRating{}, fmt.Errorf("rating for route %q: %w", routeID, models.ErrNotFound)
}

func (m *MemoryRepository) UpdateRating(_ context.Context, ratingID, userID uuid.UUID, score float64, comment *string) (models.RouteRating, models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.owned(ratingID, userID)
	if err != nil {
		return models.RouteRating{}, models.RatingSummary{}, err
	}
	r.Score = score
	if comment != nil {
		r.Comment = *comment
	}
	r.UpdatedAt = m.now().UTC()
	m.ratings[ratingID] = r
	return r, m.aggregate(r.RouteID).Summary(r.RouteID), nil
}

func (m *MemoryRepository) DeleteRating(_ context.Context, ratingID, userID uuid.UUID) (models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, err := m.owned(ratingID, userID)
	if err != nil {
		return models.RatingSummary{}, err
	}
	delete(m.ratings, ratingID)
	return m.aggregate(r.RouteID).Summary(r.RouteID), nil
}

func (m *MemoryRepository) RouteSummary(_ context.Context, routeID string) (models.RatingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	route, ok := m.store.Snapshot().GetRouteByID(routeID)
	if !ok {
		return models.RatingSummary{}, fmt.Errorf("route %q: %w", routeID, models.ErrNotFound)
	}
	m.keepBaseline(route)
	return m.aggregate(routeID).Summary(routeID), nil
}

// keepBaseline records the seeded aggregate of a route the first time it is
// touched. Callers hold mu.
func (m *MemoryRepository) keepBaseline(route models.Route) {
	if _, ok := m.baseline[route.ID]; !ok {
		m.baseline[route.ID] = Aggregate{Average: route.AverageRating, Count: route.RatingCount}
	}
}

func (m *MemoryRepository) owned(ratingID, userID uuid.UUID) (models.RouteRating, error) {
	r, ok := m.ratings[ratingID]
	if !ok {
		return models.RouteRating{}, fmt.Errorf("rating %s: %w", ratingID, models.ErrNotFound)
	}
	if r.UserID != userID {
		return models.RouteRating{}, fmt.Errorf("rating %s: %w", ratingID, models.ErrForbidden)
	}
	return r, nil
}

// aggregate recomputes a route's aggregate from its baseline and the
// ratings held here. Callers hold mu.
func (m *MemoryRepository) aggregate(routeID string) Aggregate {
	base := m.baseline[routeID]
	sum := base.Average * float64(base.Count)
	n := base.Count
	for _, r := range m.ratings {
		if r.RouteID == routeID {
			sum += r.Score
			n++
		}
	}
	if n == 0 {
		return Aggregate{}
	}
	return Aggregate{Average: sum / float64(n), Count: n}
}
