package cartsync

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mystore-sync/internal/cart"
	"github.com/angelmondragon/mystore-sync/internal/catalog"
	"github.com/angelmondragon/mystore-sync/internal/identity"
	"github.com/angelmondragon/mystore-sync/internal/remote"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

type stubCartAPI struct {
	mu sync.Mutex

	remoteLines []remote.CartLine
	getErr      error
	getDelay    time.Duration
	mergeErr    error

	getCalls   int
	mergeCalls int
	setCalls   []remote.CartLine
	removed    []string
	cleared    int
}

func (s *stubCartAPI) GetCart(context.Context) ([]remote.CartLine, error) {
	if s.getDelay > 0 {
		time.Sleep(s.getDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.remoteLines, nil
}

func (s *stubCartAPI) SetLine(_ context.Context, line remote.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls = append(s.setCalls, line)
	return nil
}

func (s *stubCartAPI) RemoveLine(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, productID)
	return nil
}

func (s *stubCartAPI) MergeLines(_ context.Context, lines []remote.CartLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeCalls++
	if s.mergeErr != nil {
		return s.mergeErr
	}
	s.remoteLines = lines
	return nil
}

func (s *stubCartAPI) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	return nil
}

func syncLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cartsync-test", Output: io.Discard})
}

func syncCtx() context.Context {
	return identity.WithUser(context.Background(), &identity.User{ID: "u1", Role: identity.RoleCustomer})
}

func newFixture(t *testing.T, api *stubCartAPI) (*cart.Store, *Service, *Queue) {
	t.Helper()
	store, err := cart.NewStore(identity.ContextProvider{}, nil, nil, syncLogger())
	require.NoError(t, err)
	queue, err := NewQueue(api, 16, time.Second, nil, syncLogger())
	require.NoError(t, err)
	svc, err := NewService(store, api, queue, nil, syncLogger())
	require.NoError(t, err)
	return store, svc, queue
}

func TestMergeOnLoginTakesMaxQuantity(t *testing.T) {
	api := &stubCartAPI{
		remoteLines: []remote.CartLine{
			{ProductID: "p1", Name: "Widgets", Quantity: 5, UnitPrice: decimal.NewFromInt(8)},
			{ProductID: "p2", Name: "Gadget", Quantity: 1, UnitPrice: decimal.NewFromInt(30)},
		},
	}
	store, svc, _ := newFixture(t, api)
	ctx := syncCtx()

	_, err := store.AddLine(ctx, &catalog.Product{ID: "p1", Name: "Widgets", Price: decimal.NewFromInt(10)}, 2)
	require.NoError(t, err)
	_, err = store.AddLine(ctx, &catalog.Product{ID: "p3", Name: "Bolt", Price: decimal.NewFromInt(2)}, 4)
	require.NoError(t, err)

	require.NoError(t, svc.MergeOnLogin(ctx))

	lines := store.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, "p2", lines[1].ProductID)
	assert.Equal(t, "p3", lines[2].ProductID)
	assert.Equal(t, 4, lines[2].Quantity)

	assert.Equal(t, 1, api.mergeCalls)
}

func TestMergeOnLoginSkipsPushbackWhenLocalEmpty(t *testing.T) {
	api := &stubCartAPI{
		remoteLines: []remote.CartLine{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
		},
	}
	store, svc, _ := newFixture(t, api)

	require.NoError(t, svc.MergeOnLogin(syncCtx()))

	assert.Len(t, store.Lines(), 1)
	assert.Equal(t, 0, api.mergeCalls)
}

func TestMergeOnLoginRunsOncePerSession(t *testing.T) {
	api := &stubCartAPI{}
	_, svc, _ := newFixture(t, api)
	ctx := syncCtx()

	require.NoError(t, svc.MergeOnLogin(ctx))
	require.NoError(t, svc.MergeOnLogin(ctx))
	assert.Equal(t, 1, api.getCalls)
	assert.True(t, svc.Merged())

	svc.Reset()
	require.NoError(t, svc.MergeOnLogin(ctx))
	assert.Equal(t, 2, api.getCalls)
}

func TestMergeOnLoginConcurrentCallersRunOnce(t *testing.T) {
	api := &stubCartAPI{
		getDelay:    50 * time.Millisecond,
		remoteLines: []remote.CartLine{{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
	}
	store, svc, _ := newFixture(t, api)
	ctx := syncCtx()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.MergeOnLogin(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, api.getCalls)
	assert.True(t, svc.Merged())
	require.Len(t, store.Lines(), 1)
}

func TestMergeOnLoginIsIdempotent(t *testing.T) {
	local := []cart.Line{
		{ProductID: "p1", Quantity: 6, UnitPrice: decimal.NewFromInt(8)},
		{ProductID: "p3", Quantity: 1, UnitPrice: decimal.NewFromInt(2)},
	}
	remoteLines := []remote.CartLine{
		{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(10)},
		{ProductID: "p2", Quantity: 3, UnitPrice: decimal.NewFromInt(30)},
	}

	once := mergeLines(local, remoteLines)
	twice := mergeLines(once, toRemoteLines(once))
	assert.Equal(t, once, twice)
}

func TestMergeOnLoginSurfacesFetchFailure(t *testing.T) {
	api := &stubCartAPI{getErr: assert.AnError}
	_, svc, _ := newFixture(t, api)

	require.Error(t, svc.MergeOnLogin(syncCtx()))
	assert.False(t, svc.Merged())

	// The guard stays unarmed so a later attempt can still merge.
	api.getErr = nil
	require.NoError(t, svc.MergeOnLogin(syncCtx()))
	assert.True(t, svc.Merged())
}

func TestMergeOnLoginPushbackFailureIsLoggedNotFatal(t *testing.T) {
	api := &stubCartAPI{mergeErr: assert.AnError}
	store, svc, _ := newFixture(t, api)
	ctx := syncCtx()

	_, err := store.AddLine(ctx, &catalog.Product{ID: "p1", Name: "Widgets", Price: decimal.NewFromInt(10)}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.MergeOnLogin(ctx))
	assert.True(t, svc.Merged())
}

func TestMutationsDrainToRemote(t *testing.T) {
	api := &stubCartAPI{}
	store, _, queue := newFixture(t, api)
	ctx, cancel := context.WithCancel(syncCtx())

	done := make(chan struct{})
	go func() {
		queue.Run(ctx)
		close(done)
	}()

	product := &catalog.Product{ID: "p1", Name: "Widgets", Price: decimal.NewFromInt(10)}
	_, err := store.AddLine(ctx, product, 2)
	require.NoError(t, err)
	require.NoError(t, store.RemoveLine(ctx, "p1"))
	require.NoError(t, store.Clear(ctx))

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.setCalls) == 1 && len(api.removed) == 1 && api.cleared == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "p1", api.setCalls[0].ProductID)
	assert.Equal(t, 2, api.setCalls[0].Quantity)
	assert.Equal(t, "p1", api.removed[0])
}

func TestQueueDropsWhenFull(t *testing.T) {
	api := &stubCartAPI{}
	queue, err := NewQueue(api, 1, time.Second, nil, syncLogger())
	require.NoError(t, err)

	ctx := context.Background()
	queue.enqueue(ctx, job{kind: jobClear})
	queue.enqueue(ctx, job{kind: jobClear})

	// Only the buffered job survives; the overflow was dropped.
	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	queue.Run(runCtx)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, 1, api.cleared)
}
