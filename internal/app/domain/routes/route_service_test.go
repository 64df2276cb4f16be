package routes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateRoute(ctx context.Context, route models.Route) error {
	args := m.Called(ctx, route)
	return args.Error(0)
}

func (m *MockRepository) GetRoute(ctx context.Context, id string) (models.Route, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Route), args.Error(1)
}

func (m *MockRepository) LoadRoutes(ctx context.Context) ([]models.Route, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Route), args.Error(1)
}

func (m *MockRepository) ListRoutes(ctx context.Context, filter models.RouteFilter) ([]models.Route, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Route), args.Error(1)
}

func (m *MockRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.Route, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Route), args.Error(1)
}

func (m *MockRepository) UpdateRoute(ctx context.Context, route models.Route) error {
	args := m.Called(ctx, route)
	return args.Error(0)
}

func (m *MockRepository) DeleteRoute(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) SetModerationStatus(ctx context.Context, id string, status models.ModerationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func newTestService(t *testing.T) (*Service, *MockRepository, *catalog.Store) {
	t.Helper()
	repo := new(MockRepository)
	store := catalog.NewStore(testGeography(t))
	return NewService(repo, store, NewBuilder(false), zap.NewNop()), repo, store
}

var signedInCaller = Caller{
	Author:        models.Author{ID: "6f1c8f4e-0d0a-4c39-9a43-2a5c9b1f6e11", Name: "Ayşe"},
	Authenticated: true,
}

func TestService_CreateRoute(t *testing.T) {
	ctx := context.Background()

	t.Run("authenticated route is persisted then cached", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		repo.On("CreateRoute", mock.Anything, mock.MatchedBy(func(r models.Route) bool {
			return r.IsPublished && len(r.Stops) == 1
		})).Return(nil).Once()

		route, err := svc.CreateRoute(ctx, validDraft(), signedInCaller)
		require.NoError(t, err)

		_, parseErr := uuid.Parse(route.ID)
		assert.NoError(t, parseErr)
		assert.Equal(t, route.ID+"-1", route.Stops[0].ID)

		cached, ok := store.Snapshot().GetRouteByID(route.ID)
		require.True(t, ok)
		assert.Equal(t, route.Title, cached.Title)
		repo.AssertExpectations(t)
	})

	t.Run("anonymous route stays local", func(t *testing.T) {
		svc, repo, store := newTestService(t)

		route, err := svc.CreateRoute(ctx, validDraft(), Caller{Author: models.Author{ID: "device-1", Name: "Guest"}})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(route.ID, "local-"))
		assert.False(t, route.IsPublished)
		_, ok := store.Snapshot().GetRouteByID(route.ID)
		assert.True(t, ok)
		repo.AssertNotCalled(t, "CreateRoute", mock.Anything, mock.Anything)
	})

	t.Run("persistence failure leaves catalog unchanged", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		repo.On("CreateRoute", mock.Anything, mock.Anything).Return(models.ErrPersistence).Once()

		_, err := svc.CreateRoute(ctx, validDraft(), signedInCaller)
		assert.ErrorIs(t, err, models.ErrPersistence)
		assert.Empty(t, store.Snapshot().Routes())
	})

	t.Run("invalid draft never reaches the repository", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		draft := validDraft()
		draft.CityID = nil

		_, err := svc.CreateRoute(ctx, draft, signedInCaller)
		assert.ErrorIs(t, err, models.ErrMissingCity)
		repo.AssertNotCalled(t, "CreateRoute", mock.Anything, mock.Anything)
	})
}

func TestService_GetRoute(t *testing.T) {
	ctx := context.Background()
	svc, repo, store := newTestService(t)
	require.NoError(t, store.MergeRoutes(
		models.Route{ID: "pub", Title: "Public", IsPublished: true},
		models.Route{ID: "draft", Title: "Draft", Author: models.Author{ID: "device-1"}},
	))

	t.Run("published route from catalog", func(t *testing.T) {
		r, err := svc.GetRoute(ctx, "pub", "")
		require.NoError(t, err)
		assert.Equal(t, "Public", r.Title)
	})

	t.Run("unpublished route for its author", func(t *testing.T) {
		_, err := svc.GetRoute(ctx, "draft", "device-1")
		assert.NoError(t, err)
	})

	t.Run("unpublished route hidden from others", func(t *testing.T) {
		_, err := svc.GetRoute(ctx, "draft", "device-2")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("falls back to repository", func(t *testing.T) {
		repo.On("GetRoute", mock.Anything, "db-only").
			Return(models.Route{ID: "db-only", IsPublished: true}, nil).Once()
		r, err := svc.GetRoute(ctx, "db-only", "")
		require.NoError(t, err)
		assert.Equal(t, "db-only", r.ID)
	})

	t.Run("unknown local id is not found without a query", func(t *testing.T) {
		_, err := svc.GetRoute(ctx, "local-missing", "")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	repo.AssertExpectations(t)
}

func TestService_ListRoutes(t *testing.T) {
	svc, repo, _ := newTestService(t)
	filter := models.RouteFilter{Query: "tatlı", Limit: 1}
	repo.On("ListRoutes", mock.Anything, filter).Return([]models.Route{
		{ID: "a", Title: "Kebap"},
		{ID: "b", Title: "Tatlı turu"},
		{ID: "c", Title: "Tatlıcılar"},
	}, nil).Once()

	got, err := svc.ListRoutes(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	repo.AssertExpectations(t)
}

func TestService_DeleteRoute(t *testing.T) {
	ctx := context.Background()
	owner := signedInCaller.Author.ID

	t.Run("owner deletes persisted route", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(models.Route{ID: "r1", Author: models.Author{ID: owner}, IsPublished: true}))
		repo.On("DeleteRoute", mock.Anything, "r1").Return(nil).Once()

		require.NoError(t, svc.DeleteRoute(ctx, "r1", owner))
		_, ok := store.Snapshot().GetRouteByID("r1")
		assert.False(t, ok)
		repo.AssertExpectations(t)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(models.Route{ID: "r1", Author: models.Author{ID: owner}, IsPublished: true}))

		err := svc.DeleteRoute(ctx, "r1", "someone-else")
		assert.ErrorIs(t, err, models.ErrForbidden)
		repo.AssertNotCalled(t, "DeleteRoute", mock.Anything, mock.Anything)
	})

	t.Run("local route is removed without the repository", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(models.Route{ID: "local-1", Author: models.Author{ID: "device-9"}}))

		require.NoError(t, svc.DeleteRoute(ctx, "local-1", "device-9"))
		repo.AssertNotCalled(t, "DeleteRoute", mock.Anything, mock.Anything)
	})

	t.Run("repository failure keeps the route", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(models.Route{ID: "r1", Author: models.Author{ID: owner}}))
		repo.On("DeleteRoute", mock.Anything, "r1").Return(models.ErrPersistence).Once()

		err := svc.DeleteRoute(ctx, "r1", owner)
		assert.ErrorIs(t, err, models.ErrPersistence)
		_, ok := store.Snapshot().GetRouteByID("r1")
		assert.True(t, ok)
	})
}

func TestService_Moderate(t *testing.T) {
	ctx := context.Background()

	t.Run("approve publishes into catalog", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		repo.On("SetModerationStatus", mock.Anything, "r1", models.ModerationApproved).Return(nil).Once()
		repo.On("GetRoute", mock.Anything, "r1").Return(models.Route{
			ID: "r1", IsPublished: true, ModerationStatus: models.ModerationApproved,
		}, nil).Once()

		r, err := svc.Moderate(ctx, "r1", models.ModerationApproved)
		require.NoError(t, err)
		assert.True(t, r.IsPublished)
		cached, ok := store.Snapshot().GetRouteByID("r1")
		require.True(t, ok)
		assert.True(t, cached.IsPublished)
		repo.AssertExpectations(t)
	})

	t.Run("reject removes from catalog", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(models.Route{ID: "r1", IsPublished: true}))
		repo.On("SetModerationStatus", mock.Anything, "r1", models.ModerationRejected).Return(nil).Once()
		repo.On("GetRoute", mock.Anything, "r1").Return(models.Route{ID: "r1", ModerationStatus: models.ModerationRejected}, nil).Once()

		_, err := svc.Moderate(ctx, "r1", models.ModerationRejected)
		require.NoError(t, err)
		_, ok := store.Snapshot().GetRouteByID("r1")
		assert.False(t, ok)
	})

	t.Run("unknown status", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		_, err := svc.Moderate(ctx, "r1", "maybe")
		assert.ErrorIs(t, err, models.ErrValidation)
		repo.AssertNotCalled(t, "SetModerationStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(nil)
	repo := NewMemoryRepository(store)
	svc := NewService(repo, store, NewBuilder(false), zap.NewNop())

	require.NoError(t, repo.CreateRoute(ctx, models.Route{ID: "a", Title: "A", IsPublished: true, AverageRating: 3}))
	require.NoError(t, repo.CreateRoute(ctx, models.Route{ID: "b", Title: "B", IsPublished: true, AverageRating: 4.5}))
	require.NoError(t, repo.CreateRoute(ctx, models.Route{ID: "c", Title: "C", AverageRating: 5}))
	assert.ErrorIs(t, repo.CreateRoute(ctx, models.Route{ID: "a"}), models.ErrConflict)

	listed, err := svc.ListRoutes(ctx, models.RouteFilter{Sort: models.RouteSortRating})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, []string{listed[0].ID, listed[1].ID})

	listed, err = repo.ListRoutes(ctx, models.RouteFilter{MinRating: 4})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = svc.Moderate(ctx, "c", models.ModerationApproved)
	require.NoError(t, err)
	listed, err = repo.ListRoutes(ctx, models.RouteFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	assert.ErrorIs(t, repo.DeleteRoute(ctx, "zzz"), models.ErrNotFound)
}

func TestService_ListByAuthor(t *testing.T) {
	ctx := context.Background()
	owner := signedInCaller.Author.ID
	day := func(d int) time.Time { return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC) }

	t.Run("stored and cached routes, newest first", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(
			models.Route{ID: "r1", Author: models.Author{ID: owner}, IsPublished: true, RatingCount: 7, CreatedAt: day(1)},
			models.Route{ID: "other", Author: models.Author{ID: "someone"}, IsPublished: true, CreatedAt: day(9)},
		))
		repo.On("ListByAuthor", mock.Anything, owner).Return([]models.Route{
			{ID: "r1", Author: models.Author{ID: owner}, IsPublished: true, RatingCount: 2, CreatedAt: day(1)},
			{ID: "pending", Author: models.Author{ID: owner}, ModerationStatus: models.ModerationPending, CreatedAt: day(3)},
		}, nil).Once()

		got, err := svc.ListByAuthor(ctx, owner)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "pending", got[0].ID)
		assert.Equal(t, "r1", got[1].ID)
		assert.Equal(t, 7, got[1].RatingCount, "cached counters win")
		repo.AssertExpectations(t)
	})

	t.Run("anonymous callers have no routes to list", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		for _, id := range []string{"", models.GuestAuthor.ID} {
			_, err := svc.ListByAuthor(ctx, id)
			assert.ErrorIs(t, err, models.ErrUnauthenticated)
		}
		repo.AssertNotCalled(t, "ListByAuthor", mock.Anything, mock.Anything)
	})

	t.Run("repository failure", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		repo.On("ListByAuthor", mock.Anything, owner).Return(nil, models.ErrPersistence).Once()
		_, err := svc.ListByAuthor(ctx, owner)
		assert.ErrorIs(t, err, models.ErrPersistence)
	})
}

func TestService_UpdateRoute(t *testing.T) {
	ctx := context.Background()
	owner := signedInCaller.Author.ID
	stored := models.Route{ID: "r1", Title: "Old", Tags: []string{"a"}, Author: models.Author{ID: owner}, IsPublished: true}

	t.Run("owner edits persisted route", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(stored))
		repo.On("UpdateRoute", mock.Anything, mock.MatchedBy(func(r models.Route) bool {
			return r.ID == "r1" && r.Title == "New" && r.Summary == "short" && len(r.Tags) == 2
		})).Return(nil).Once()

		got, err := svc.UpdateRoute(ctx, "r1", owner, models.RoutePatch{
			Title:   ptr(" New "),
			Summary: ptr(" short "),
			Tags:    ptr([]string{"x", "y", "x"}),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, got.Tags)

		cached, ok := store.Snapshot().GetRouteByID("r1")
		require.True(t, ok)
		assert.Equal(t, "New", cached.Title)
		repo.AssertExpectations(t)
	})

	t.Run("omitted fields are kept", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(stored))
		repo.On("UpdateRoute", mock.Anything, mock.Anything).Return(nil).Once()

		got, err := svc.UpdateRoute(ctx, "r1", owner, models.RoutePatch{CoverImage: ptr("https://img.example/c.jpg")})
		require.NoError(t, err)
		assert.Equal(t, "Old", got.Title)
		assert.Equal(t, []string{"a"}, got.Tags)
	})

	t.Run("title cannot be cleared", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(stored))
		_, err := svc.UpdateRoute(ctx, "r1", owner, models.RoutePatch{Title: ptr("  ")})
		assert.ErrorIs(t, err, models.ErrMissingTitle)
		repo.AssertNotCalled(t, "UpdateRoute", mock.Anything, mock.Anything)
	})

	t.Run("other users are forbidden", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(stored))
		_, err := svc.UpdateRoute(ctx, "r1", "someone-else", models.RoutePatch{Title: ptr("Mine now")})
		assert.ErrorIs(t, err, models.ErrForbidden)
		repo.AssertNotCalled(t, "UpdateRoute", mock.Anything, mock.Anything)
	})

	t.Run("guests own nothing", func(t *testing.T) {
		svc, _, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(models.Route{ID: "g1", Author: models.GuestAuthor, IsPublished: true}))
		_, err := svc.UpdateRoute(ctx, "g1", models.GuestAuthor.ID, models.RoutePatch{Title: ptr("x")})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("unpublished route of another author is hidden", func(t *testing.T) {
		svc, _, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(models.Route{ID: "local-1", Author: models.Author{ID: "device-9"}}))
		_, err := svc.UpdateRoute(ctx, "local-1", "device-2", models.RoutePatch{Title: ptr("x")})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("local route is edited without the repository", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(models.Route{ID: "local-1", Title: "Draft", Author: models.Author{ID: "device-9"}}))
		got, err := svc.UpdateRoute(ctx, "local-1", "device-9", models.RoutePatch{Description: ptr(" long walk ")})
		require.NoError(t, err)
		assert.Equal(t, "long walk", got.Description)
		repo.AssertNotCalled(t, "UpdateRoute", mock.Anything, mock.Anything)
	})

	t.Run("repository failure leaves the cache alone", func(t *testing.T) {
		svc, repo, store := newTestService(t)
		require.NoError(t, store.MergeRoutes(stored))
		repo.On("UpdateRoute", mock.Anything, mock.Anything).Return(models.ErrPersistence).Once()

		_, err := svc.UpdateRoute(ctx, "r1", owner, models.RoutePatch{Title: ptr("New")})
		assert.ErrorIs(t, err, models.ErrPersistence)
		cached, _ := store.Snapshot().GetRouteByID("r1")
		assert.Equal(t, "Old", cached.Title)
	})
}

func TestMemoryRepository_Authors(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(nil)
	repo := NewMemoryRepository(store)
	first := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateRoute(ctx, models.Route{ID: "a", Author: models.Author{ID: "device-1"}, CreatedAt: first}))
	require.NoError(t, repo.CreateRoute(ctx, models.Route{ID: "b", Author: models.Author{ID: "device-1"}, CreatedAt: first.Add(time.Hour)}))
	require.NoError(t, repo.CreateRoute(ctx, models.Route{ID: "c", Author: models.Author{ID: "device-2"}, IsPublished: true}))

	mine, err := repo.ListByAuthor(ctx, "device-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "b", mine[0].ID)

	require.NoError(t, repo.UpdateRoute(ctx, models.Route{ID: "a", Title: "Renamed", Author: models.Author{ID: "device-1"}}))
	got, err := repo.GetRoute(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	assert.ErrorIs(t, repo.UpdateRoute(ctx, models.Route{ID: "zzz"}), models.ErrNotFound)
}
