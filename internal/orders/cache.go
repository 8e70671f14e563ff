package orders

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/redis"
)

// QueryCache stores scoped order lists so repeated listings avoid the
// backend. Keys are scopes, never pages.
type QueryCache interface {
	Get(ctx context.Context, scope Scope) ([]Order, bool, error)
	Set(ctx context.Context, scope Scope, orders []Order) error
	Scopes(ctx context.Context) ([]Scope, error)
	Invalidate(ctx context.Context) error
}

// MemoryCache is an in-process query cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[Scope][]Order
}

// NewMemoryCache constructs an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[Scope][]Order)}
}

func (c *MemoryCache) Get(_ context.Context, scope Scope) ([]Order, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	orders, ok := c.entries[scope]
	if !ok {
		return nil, false, nil
	}
	out := make([]Order, len(orders))
	copy(out, orders)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, scope Scope, orders []Order) error {
	stored := make([]Order, len(orders))
	copy(stored, orders)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[scope] = stored
	return nil
}

func (c *MemoryCache) Scopes(_ context.Context) ([]Scope, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	scopes := make([]Scope, 0, len(c.entries))
	for scope := range c.entries {
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Scope][]Order)
	return nil
}

const redisCacheTTL = 15 * time.Minute

// scopedKV is the slice of the redis client the cache needs.
type scopedKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SAdd(ctx context.Context, key string, members ...any) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	OrdersScopeKey(scope string) string
	OrdersScopeIndexKey() string
}

var _ scopedKV = (*redis.Client)(nil)

// RedisCache is a query cache shared across processes through Redis.
// A set of cached scope names is kept alongside the entries so
// Invalidate can drop everything.
type RedisCache struct {
	client scopedKV
}

// NewRedisCache constructs a Redis-backed query cache.
func NewRedisCache(client scopedKV) (*RedisCache, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: redis client is required")
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, scope Scope) ([]Order, bool, error) {
	raw, err := c.client.Get(ctx, c.client.OrdersScopeKey(string(scope)))
	if redis.IsNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read cached orders")
	}

	var orders []Order
	if err := json.Unmarshal([]byte(raw), &orders); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cached orders")
	}
	return orders, true, nil
}

func (c *RedisCache) Set(ctx context.Context, scope Scope, orders []Order) error {
	payload, err := json.Marshal(orders)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cached orders")
	}
	if err := c.client.Set(ctx, c.client.OrdersScopeKey(string(scope)), payload, redisCacheTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "write cached orders")
	}
	if err := c.client.SAdd(ctx, c.client.OrdersScopeIndexKey(), string(scope)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "index cached scope")
	}
	return nil
}

func (c *RedisCache) Scopes(ctx context.Context) ([]Scope, error) {
	members, err := c.client.SMembers(ctx, c.client.OrdersScopeIndexKey())
	if err != nil && !redis.IsNil(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cached scopes")
	}
	scopes := make([]Scope, 0, len(members))
	for _, member := range members {
		scopes = append(scopes, Scope(member))
	}
	return scopes, nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	scopes, err := c.Scopes(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(scopes)+1)
	for _, scope := range scopes {
		keys = append(keys, c.client.OrdersScopeKey(string(scope)))
	}
	keys = append(keys, c.client.OrdersScopeIndexKey())
	if err := c.client.Del(ctx, keys...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop cached orders")
	}
	return nil
}
