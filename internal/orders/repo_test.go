package orders

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mystore-sync/internal/identity"
	"github.com/angelmondragon/mystore-sync/internal/remote"
	"github.com/angelmondragon/mystore-sync/pkg/config"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/localdb"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/pagination"
)

type stubRemote struct {
	listAllFn  func(ctx context.Context) ([]remote.Order, error)
	listMineFn func(ctx context.Context) ([]remote.Order, error)
	createFn   func(ctx context.Context, req remote.CreateOrderRequest) (*remote.Order, error)
	updateFn   func(ctx context.Context, orderID, status string) (*remote.Order, error)
}

func (s *stubRemote) ListAll(ctx context.Context) ([]remote.Order, error) {
	return s.listAllFn(ctx)
}

func (s *stubRemote) ListMine(ctx context.Context) ([]remote.Order, error) {
	return s.listMineFn(ctx)
}

func (s *stubRemote) Create(ctx context.Context, req remote.CreateOrderRequest) (*remote.Order, error) {
	return s.createFn(ctx, req)
}

func (s *stubRemote) UpdateStatus(ctx context.Context, orderID, status string) (*remote.Order, error) {
	return s.updateFn(ctx, orderID, status)
}

func testBackup(t *testing.T) *BackupStore {
	t.Helper()
	client, err := localdb.New(context.Background(), config.LocalDBConfig{
		Path:        ":memory:",
		AutoMigrate: true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewBackupStore(client)
}

func ordersLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
}

func customerProvider() identity.Provider {
	return &identity.StaticProvider{User: &identity.User{ID: "u1", Role: identity.RoleCustomer}}
}

func draftWithItem() Draft {
	return Draft{
		UserID: "u1",
		Items: []Item{
			{ProductID: "p1", Name: "Widgets", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
		},
		Totals:        Totals{Subtotal: decimal.NewFromInt(20), GrandTotal: decimal.NewFromInt(48)},
		PaymentMethod: "cod",
	}
}

func TestListServesRemoteThroughCache(t *testing.T) {
	calls := 0
	api := &stubRemote{
		listMineFn: func(context.Context) ([]remote.Order, error) {
			calls++
			return []remote.Order{{ID: "ord_1", UserID: "u1", Status: "pending"}}, nil
		},
	}
	repo, err := NewRepository(api, testBackup(t), NewMemoryCache(), customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)

	ctx := context.Background()
	orders, pg, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1, pg.Number)

	_, _, err = repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, repo.RemoteEnabled())
}

func TestRefreshDropsCacheAndRefetches(t *testing.T) {
	calls := 0
	api := &stubRemote{
		listMineFn: func(context.Context) ([]remote.Order, error) {
			calls++
			return []remote.Order{{ID: "ord_1", UserID: "u1", Status: "pending"}}, nil
		},
	}
	repo, err := NewRepository(api, testBackup(t), NewMemoryCache(), customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)

	ctx := context.Background()
	_, _, err = repo.List(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	require.NoError(t, repo.Refresh(ctx))
	assert.Equal(t, 2, calls)

	_, _, err = repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestListRequiresUser(t *testing.T) {
	repo, err := NewRepository(nil, testBackup(t), NewMemoryCache(), &identity.StaticProvider{}, nil, nil, ordersLogger())
	require.NoError(t, err)

	_, _, err = repo.List(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAuthRequired))
}

func TestAdminScopeUsesListAll(t *testing.T) {
	api := &stubRemote{
		listAllFn: func(context.Context) ([]remote.Order, error) {
			return []remote.Order{
				{ID: "ord_1", UserID: "u1", Status: "pending"},
				{ID: "ord_2", UserID: "u2", Status: "shipped"},
			}, nil
		},
	}
	admin := &identity.StaticProvider{User: &identity.User{ID: "a1", Role: identity.RoleAdmin}}
	repo, err := NewRepository(api, testBackup(t), NewMemoryCache(), admin, nil, nil, ordersLogger())
	require.NoError(t, err)

	orders, _, err := repo.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestBreakerTripsOnListFailureAndStaysLocal(t *testing.T) {
	api := &stubRemote{
		listMineFn: func(context.Context) ([]remote.Order, error) {
			return nil, assert.AnError
		},
		createFn: func(context.Context, remote.CreateOrderRequest) (*remote.Order, error) {
			t.Fatal("remote create must not run in local mode")
			return nil, nil
		},
	}
	repo, err := NewRepository(api, testBackup(t), NewMemoryCache(), customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)
	ctx := context.Background()

	orders, _, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.False(t, repo.RemoteEnabled())

	created, err := repo.Create(ctx, draftWithItem())
	require.NoError(t, err)
	assert.Contains(t, created.ID, "ord_")
	assert.Equal(t, StatusPending, created.Status)

	orders, _, err = repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, created.ID, orders[0].ID)
}

func TestCreateFailureFlipsToLocal(t *testing.T) {
	api := &stubRemote{
		createFn: func(context.Context, remote.CreateOrderRequest) (*remote.Order, error) {
			return nil, assert.AnError
		},
	}
	repo, err := NewRepository(api, testBackup(t), NewMemoryCache(), customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)

	created, err := repo.Create(context.Background(), draftWithItem())
	require.NoError(t, err)
	assert.Contains(t, created.ID, "ord_")
	assert.False(t, repo.RemoteEnabled())
}

func TestCreateMergesIntoCachedScopes(t *testing.T) {
	api := &stubRemote{
		listMineFn: func(context.Context) ([]remote.Order, error) {
			return []remote.Order{{ID: "ord_1", UserID: "u1", Status: "shipped"}}, nil
		},
		createFn: func(_ context.Context, req remote.CreateOrderRequest) (*remote.Order, error) {
			return &remote.Order{ID: "ord_2", UserID: req.UserID, Status: "pending"}, nil
		},
	}
	cache := NewMemoryCache()
	repo, err := NewRepository(api, testBackup(t), cache, customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = repo.List(ctx, 1)
	require.NoError(t, err)

	created, err := repo.Create(ctx, draftWithItem())
	require.NoError(t, err)
	assert.Equal(t, "ord_2", created.ID)

	cached, ok, err := cache.Get(ctx, ScopeForUser("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached, 2)
	assert.Equal(t, "ord_2", cached[0].ID)
}

func TestUpdateStatusMirrorsLocallyOnRemoteFailure(t *testing.T) {
	api := &stubRemote{
		updateFn: func(context.Context, string, string) (*remote.Order, error) {
			return nil, assert.AnError
		},
	}
	backup := testBackup(t)
	repo, err := NewRepository(api, backup, NewMemoryCache(), customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backup.Save(ctx, Order{ID: "ord_1", UserID: "u1", Status: StatusPending}))
	require.NoError(t, repo.UpdateStatus(ctx, "ord_1", StatusShipped))

	stored, err := repo.Get(ctx, "ord_1")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, stored.Status)
	assert.False(t, repo.RemoteEnabled())
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo, err := NewRepository(nil, testBackup(t), NewMemoryCache(), customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)

	err = repo.UpdateStatus(context.Background(), "ord_1", Status("teleported"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestMergeOrderIsIdempotent(t *testing.T) {
	cache := NewMemoryCache()
	repo, err := NewRepository(nil, testBackup(t), cache, customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, ScopeForUser("u1"), nil))

	order := Order{ID: "ord_1", UserID: "u1", Status: StatusPending}
	require.NoError(t, repo.MergeOrder(ctx, order))
	require.NoError(t, repo.MergeOrder(ctx, order))

	cached, ok, err := cache.Get(ctx, ScopeForUser("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cached, 1)
}

func TestApplyStatusIgnoresUnknownID(t *testing.T) {
	repo, err := NewRepository(nil, testBackup(t), NewMemoryCache(), customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)

	require.NoError(t, repo.ApplyStatus(context.Background(), "ord_missing", StatusShipped))
}

func TestListPaginatesAtFixedPageSize(t *testing.T) {
	backup := testBackup(t)
	repo, err := NewRepository(nil, backup, NewMemoryCache(), customerProvider(), nil, nil, ordersLogger())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < pagination.PageSize+5; i++ {
		require.NoError(t, backup.Save(ctx, Order{
			ID:     "ord_" + string(rune('a'+i%26)) + string(rune('a'+i/26)),
			UserID: "u1",
			Status: StatusPending,
		}))
	}

	first, pg, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, first, pagination.PageSize)
	assert.Equal(t, 2, pg.TotalPages)

	second, _, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, second, 5)
}
