package routes

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps routes in the catalog store only. It backs demo
// mode, where nothing outlives the process.
type MemoryRepository struct {
	store *catalog.Store
}

func NewMemoryRepository(store *catalog.Store) *MemoryRepository {
	return &MemoryRepository{store: store}
}

func (m *MemoryRepository) CreateRoute(_ context.Context, route models.Route) error {
	if _, exists := m.store.Snapshot().GetRouteByID(route.ID); exists {
		return fmt.Errorf("%w: route %q", models.ErrConflict, route.ID)
	}
	return m.store.MergeRoutes(route)
}

func (m *MemoryRepository) GetRoute(_ context.Context, id string) (models.Route, error) {
	r, ok := m.store.Snapshot().GetRouteByID(id)
	if !ok {
		return models.Route{}, fmt.Errorf("route %q: %w", id, models.ErrNotFound)
	}
	return r, nil
}

func (m *MemoryRepository) LoadRoutes(_ context.Context) ([]models.Route, error) {
	return m.store.Snapshot().Routes(), nil
}

func (m *MemoryRepository) ListRoutes(_ context.Context, filter models.RouteFilter) ([]models.Route, error) {
	out := make([]models.Route, 0)
	for _, r := range m.store.Snapshot().Routes() {
		if !r.IsPublished {
			continue
		}
		if filter.CityID != "" && r.CityID != filter.CityID {
			continue
		}
		if filter.MinRating > 0 && r.AverageRating < filter.MinRating {
			continue
		}
		out = append(out, r)
	}
	sortRoutes(out, filter.Sort)
	if filter.Limit > 0 && filter.Query == "" && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) ListByAuthor(_ context.Context, authorID string) ([]models.Route, error) {
	out := make([]models.Route, 0)
	for _, r := range m.store.Snapshot().Routes() {
		if r.Author.ID == authorID {
			out = append(out, r)
		}
	}
	sortRoutes(out, models.RouteSortNewest)
	return out, nil
}

func (m *MemoryRepository) UpdateRoute(_ context.Context, route models.Route) error {
	if _, ok := m.store.Snapshot().GetRouteByID(route.ID); !ok {
		return fmt.Errorf("route %q: %w", route.ID, models.ErrNotFound)
	}
	return m.store.MergeRoutes(route)
}

func (m *MemoryRepository) DeleteRoute(_ context.Context, id string) error {
	if _, ok := m.store.Snapshot().GetRouteByID(id); !ok {
		return fmt.Errorf("route %q: %w", id, models.ErrNotFound)
	}
	return m.store.RemoveRoute(id)
}

func (m *MemoryRepository) SetModerationStatus(_ context.Context, id string, status models.ModerationStatus) error {
	r, ok := m.store.Snapshot().GetRouteByID(id)
	if !ok {
		return fmt.Errorf("route %q: %w", id, models.ErrNotFound)
	}
	r.ModerationStatus = status
	r.IsPublished = status == models.ModerationApproved
	return m.store.MergeRoutes(r)
}

// sortRoutes orders routes the same way the SQL listing does.
func sortRoutes(routes []models.Route, by models.RouteSort) {
	slices.SortStableFunc(routes, func(a, b models.Route) int {
		switch by {
		case models.RouteSortNewest:
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
		case models.RouteSortPopular:
			if c := cmp.Compare(b.FavoriteCount, a.FavoriteCount); c != 0 {
				return c
			}
			if c := cmp.Compare(b.RatingCount, a.RatingCount); c != 0 {
				return c
			}
		default:
			if c := cmp.Compare(b.AverageRating, a.AverageRating); c != 0 {
				return c
			}
			if c := cmp.Compare(b.RatingCount, a.RatingCount); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
