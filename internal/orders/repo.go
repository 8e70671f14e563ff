package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mystore-sync/internal/identity"
	"github.com/angelmondragon/mystore-sync/internal/notify"
	"github.com/angelmondragon/mystore-sync/internal/remote"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/metrics"
	"github.com/angelmondragon/mystore-sync/pkg/pagination"
)

// remoteAPI is the slice of the backend order service the repository
// depends on.
type remoteAPI interface {
	ListAll(ctx context.Context) ([]remote.Order, error)
	ListMine(ctx context.Context) ([]remote.Order, error)
	Create(ctx context.Context, req remote.CreateOrderRequest) (*remote.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*remote.Order, error)
}

var _ remoteAPI = (*remote.OrderClient)(nil)

// Repository serves order queries remote-first with a durable local
// fallback. The first remote failure flips the repository to local
// mode for the rest of the session.
type Repository struct {
	api      remoteAPI
	backup   *BackupStore
	cache    QueryCache
	identity identity.Provider
	metrics  *metrics.SyncMetrics
	notify   notify.Sink
	logg     *logger.Logger

	mu        sync.Mutex
	useRemote bool
}

// NewRepository constructs the order repository. The metrics recorder
// and sink may be nil.
func NewRepository(api remoteAPI, backup *BackupStore, cache QueryCache, provider identity.Provider, mets *metrics.SyncMetrics, sink notify.Sink, logg *logger.Logger) (*Repository, error) {
	if backup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: backup store is required")
	}
	if cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: query cache is required")
	}
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: identity provider is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders: logger is required")
	}
	return &Repository{
		api:       api,
		backup:    backup,
		cache:     cache,
		identity:  provider,
		metrics:   mets,
		notify:    notify.OrDefault(sink),
		logg:      logg,
		useRemote: api != nil,
	}, nil
}

// RemoteEnabled reports whether the session is still in remote mode.
func (r *Repository) RemoteEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.useRemote
}

// tripBreaker flips the repository to local mode for the rest of the
// session. It never flips back.
func (r *Repository) tripBreaker(ctx context.Context, cause error) {
	r.mu.Lock()
	wasRemote := r.useRemote
	r.useRemote = false
	r.mu.Unlock()

	if !wasRemote {
		return
	}
	r.metrics.IncBreakerTrip("orders")
	r.logg.Warn(ctx, fmt.Sprintf("orders: remote unavailable, switching to local mode: %v", cause))
	r.notify.Warning(ctx, "Working offline", "Orders are served from the local copy")
}

// List returns one page of orders visible to the current user, newest
// first. Remote results are served through the scope-keyed query cache;
// in local mode the durable backup list is used.
func (r *Repository) List(ctx context.Context, page int) ([]Order, pagination.Page, error) {
	user := r.identity.Current(ctx)
	if user == nil {
		return nil, pagination.Page{}, pkgerrors.New(pkgerrors.CodeAuthRequired, "please login first")
	}
	scope := ScopeFor(user)

	all, err := r.listScope(ctx, scope, user)
	if err != nil {
		return nil, pagination.Page{}, err
	}

	pg := pagination.Slice(len(all), page)
	return all[pg.Start:pg.End], pg, nil
}

// Refresh drops every cached list and reloads the caller's scope, so a
// fresh login sees current orders instead of a stale session cache.
func (r *Repository) Refresh(ctx context.Context) error {
	user := r.identity.Current(ctx)
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeAuthRequired, "please login first")
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.logg.Warn(ctx, fmt.Sprintf("orders: query cache invalidation failed: %v", err))
	}
	_, err := r.listScope(ctx, ScopeFor(user), user)
	return err
}

func (r *Repository) listScope(ctx context.Context, scope Scope, user *identity.User) ([]Order, error) {
	if r.RemoteEnabled() {
		if cached, ok, err := r.cache.Get(ctx, scope); err == nil && ok {
			return cached, nil
		} else if err != nil {
			r.logg.Warn(ctx, fmt.Sprintf("orders: query cache read failed: %v", err))
		}

		fetched, err := r.fetchRemote(ctx, user)
		if err == nil {
			r.metrics.IncRemoteCall("orders", "success")
			if err := r.cache.Set(ctx, scope, fetched); err != nil {
				r.logg.Warn(ctx, fmt.Sprintf("orders: query cache write failed: %v", err))
			}
			if err := r.backup.SaveAll(ctx, fetched); err != nil {
				r.logg.Warn(ctx, fmt.Sprintf("orders: backup mirror failed: %v", err))
			}
			return fetched, nil
		}
		r.metrics.IncRemoteCall("orders", "failure")
		r.tripBreaker(ctx, err)
	}

	return r.backup.List(ctx, scope)
}

func (r *Repository) fetchRemote(ctx context.Context, user *identity.User) ([]Order, error) {
	var (
		raw []remote.Order
		err error
	)
	if user.IsAdmin() {
		raw, err = r.api.ListAll(ctx)
	} else {
		raw, err = r.api.ListMine(ctx)
	}
	if err != nil {
		return nil, err
	}
	orders := make([]Order, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, fromRemote(o))
	}
	return orders, nil
}

// Create places a new order. In remote mode the backend assigns the id
// and the stored order is merged into every cached list covering it; on
// failure the repository flips to local mode and persists the order
// with a client-generated id.
func (r *Repository) Create(ctx context.Context, draft Draft) (*Order, error) {
	if r.identity.Current(ctx) == nil {
		return nil, pkgerrors.New(pkgerrors.CodeAuthRequired, "please login first")
	}
	if len(draft.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	if r.RemoteEnabled() {
		created, err := r.api.Create(ctx, toRemoteCreate(draft))
		if err == nil {
			r.metrics.IncRemoteCall("orders", "success")
			order := fromRemote(*created)
			if order.Status == "" {
				order.Status = StatusPending
			}
			if err := r.MergeOrder(ctx, order); err != nil {
				r.logg.Warn(ctx, fmt.Sprintf("orders: merge after create failed: %v", err))
			}
			return &order, nil
		}
		r.metrics.IncRemoteCall("orders", "failure")
		r.tripBreaker(ctx, err)
	}

	order := Order{
		ID:            "ord_" + uuid.NewString(),
		UserID:        draft.UserID,
		Status:        StatusPending,
		Items:         draft.Items,
		Totals:        draft.Totals,
		PaymentMethod: draft.PaymentMethod,
		TransactionID: draft.TransactionID,
		CouponCode:    draft.CouponCode,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.MergeOrder(ctx, order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus changes an order's status. The remote update is
// attempted in remote mode, and the new status is mirrored into the
// local fallback either way so the UI never regresses.
func (r *Repository) UpdateStatus(ctx context.Context, orderID string, status Status) error {
	if !KnownStatus(status) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", status))
	}
	if r.RemoteEnabled() {
		if _, err := r.api.UpdateStatus(ctx, orderID, string(status)); err != nil {
			r.metrics.IncRemoteCall("orders", "failure")
			r.tripBreaker(ctx, err)
		} else {
			r.metrics.IncRemoteCall("orders", "success")
		}
	}
	return r.ApplyStatus(ctx, orderID, status)
}

// MergeOrder upserts the order by id into the durable backup and every
// cached list covering its scope. Re-applying the same order is a
// no-op beyond the first application.
func (r *Repository) MergeOrder(ctx context.Context, order Order) error {
	if err := r.backup.Save(ctx, order); err != nil {
		return err
	}

	scopes, err := r.cache.Scopes(ctx)
	if err != nil {
		return err
	}
	for _, scope := range scopes {
		if !scope.Covers(order) {
			continue
		}
		cached, ok, err := r.cache.Get(ctx, scope)
		if err != nil || !ok {
			continue
		}
		replaced := false
		for i := range cached {
			if cached[i].ID == order.ID {
				cached[i] = order
				replaced = true
				break
			}
		}
		if !replaced {
			cached = append([]Order{order}, cached...)
		}
		if err := r.cache.Set(ctx, scope, cached); err != nil {
			r.logg.Warn(ctx, fmt.Sprintf("orders: cache merge failed: %v", err))
		}
	}
	return nil
}

// ApplyStatus patches the status in the durable backup and in every
// cached list containing the order id. An id missing everywhere is
// ignored.
func (r *Repository) ApplyStatus(ctx context.Context, orderID string, status Status) error {
	if backed, err := r.backup.Get(ctx, orderID); err == nil {
		backed.Status = status
		if err := r.backup.Save(ctx, *backed); err != nil {
			return err
		}
	} else if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		return err
	}

	scopes, err := r.cache.Scopes(ctx)
	if err != nil {
		return err
	}
	for _, scope := range scopes {
		cached, ok, err := r.cache.Get(ctx, scope)
		if err != nil || !ok {
			continue
		}
		touched := false
		for i := range cached {
			if cached[i].ID == orderID {
				cached[i].Status = status
				touched = true
			}
		}
		if !touched {
			continue
		}
		if err := r.cache.Set(ctx, scope, cached); err != nil {
			r.logg.Warn(ctx, fmt.Sprintf("orders: cache patch failed: %v", err))
		}
	}
	return nil
}

// Get returns one order by id from the durable backup.
func (r *Repository) Get(ctx context.Context, orderID string) (*Order, error) {
	return r.backup.Get(ctx, orderID)
}
