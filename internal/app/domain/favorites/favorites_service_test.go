package favorites

import (
	"context"
	"testing"

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

func (m *MockRepository) ListRouteIDs(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) Add(ctx context.Context, userID uuid.UUID, routeID string) (bool, error) {
	args := m.Called(ctx, userID, routeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Remove(ctx context.Context, userID uuid.UUID, routeID string) (bool, error) {
	args := m.Called(ctx, userID, routeID)
	return args.Bool(0), args.Error(1)
}

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	c, err := catalog.New(catalog.Data{Routes: []models.Route{
		{ID: "r1", Title: "One", IsPublished: true, FavoriteCount: 2},
		{ID: "r2", Title: "Two", IsPublished: true},
		{ID: "hidden", Title: "Draft", Author: models.Author{ID: "someone"}},
	}})
	require.NoError(t, err)
	return catalog.NewStore(c)
}

func TestService_Toggle(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("demo owner only flips the set", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, newStore(t), zap.NewNop())
		owner := Owner{Set: NewSet()}

		on, err := svc.Toggle(ctx, owner, "r1")
		require.NoError(t, err)
		assert.True(t, on)
		off, err := svc.Toggle(ctx, owner, "r1")
		require.NoError(t, err)
		assert.False(t, off)

		repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("durable owner persists and bumps the counter", func(t *testing.T) {
		repo := new(MockRepository)
		store := newStore(t)
		svc := NewService(repo, store, zap.NewNop())
		owner := Owner{UserID: userID, Durable: true, Set: NewSet()}
		repo.On("Add", mock.Anything, userID, "r1").Return(true, nil).Once()
		repo.On("Remove", mock.Anything, userID, "r1").Return(true, nil).Once()

		on, err := svc.Toggle(ctx, owner, "r1")
		require.NoError(t, err)
		assert.True(t, on)
		r, _ := store.Snapshot().GetRouteByID("r1")
		assert.Equal(t, 3, r.FavoriteCount)

		_, err = svc.Toggle(ctx, owner, "r1")
		require.NoError(t, err)
		r, _ = store.Snapshot().GetRouteByID("r1")
		assert.Equal(t, 2, r.FavoriteCount)
		repo.AssertExpectations(t)
	})

	t.Run("persistence failure leaves the set unchanged", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, newStore(t), zap.NewNop())
		owner := Owner{UserID: userID, Durable: true, Set: NewSet("r2")}
		repo.On("Add", mock.Anything, userID, "r1").Return(false, models.ErrPersistence).Once()
		repo.On("Remove", mock.Anything, userID, "r2").Return(false, models.ErrPersistence).Once()

		state, err := svc.Toggle(ctx, owner, "r1")
		assert.ErrorIs(t, err, models.ErrPersistence)
		assert.False(t, state)
		state, err = svc.Toggle(ctx, owner, "r2")
		assert.ErrorIs(t, err, models.ErrPersistence)
		assert.True(t, state)

		assert.Equal(t, []string{"r2"}, owner.Set.IDs())
	})

	t.Run("durable owner without repository behaves like demo", func(t *testing.T) {
		svc := NewService(nil, newStore(t), zap.NewNop())
		owner := Owner{UserID: userID, Durable: true, Set: NewSet()}
		on, err := svc.Toggle(ctx, owner, "unknown")
		require.NoError(t, err)
		assert.True(t, on)
	})
}

func TestService_SaveRouteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockRepository)
	svc := NewService(repo, newStore(t), zap.NewNop())
	owner := Owner{UserID: userID, Durable: true, Set: NewSet()}
	repo.On("Add", mock.Anything, userID, "r2").Return(true, nil).Once()

	require.NoError(t, svc.SaveRoute(ctx, owner, "r2"))
	require.NoError(t, svc.SaveRoute(ctx, owner, "r2"))
	assert.Equal(t, []string{"r2"}, owner.Set.IDs())
	repo.AssertExpectations(t)
}

func TestService_LoadAndList(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	repo := new(MockRepository)
	svc := NewService(repo, newStore(t), zap.NewNop())
	owner := Owner{UserID: userID, Durable: true, Set: NewSet("stale")}
	repo.On("ListRouteIDs", mock.Anything, userID).Return([]string{"r2", "gone", "hidden", "r1"}, nil).Once()

	require.NoError(t, svc.Load(ctx, owner))
	assert.Equal(t, 4, owner.Set.Len())

	routes := svc.List(owner, userID.String())
	require.Len(t, routes, 2)
	assert.Equal(t, "r1", routes[0].ID)
	assert.Equal(t, "r2", routes[1].ID)
}
