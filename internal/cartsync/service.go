package cartsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/mystore-sync/internal/cart"
	"github.com/angelmondragon/mystore-sync/internal/remote"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
	"github.com/angelmondragon/mystore-sync/pkg/metrics"
)

// cartAPI is the slice of the backend cart service the sync layer
// depends on.
type cartAPI interface {
	GetCart(ctx context.Context) ([]remote.CartLine, error)
	SetLine(ctx context.Context, line remote.CartLine) error
	RemoveLine(ctx context.Context, productID string) error
	MergeLines(ctx context.Context, lines []remote.CartLine) error
	Clear(ctx context.Context) error
}

var _ cartAPI = (*remote.CartClient)(nil)

// Service reconciles the local cart with the remote store: a one-shot
// merge at login, then write-behind mirroring of every mutation.
type Service struct {
	store   *cart.Store
	api     cartAPI
	queue   *Queue
	metrics *metrics.SyncMetrics
	logg    *logger.Logger

	// mergeMu serializes MergeOnLogin so concurrent callers cannot
	// both run the merge; mu guards the one-shot flag.
	mergeMu sync.Mutex
	mu      sync.Mutex
	merged  bool
}

// NewService wires the sync service and subscribes it to cart
// mutations.
func NewService(store *cart.Store, api cartAPI, queue *Queue, mets *metrics.SyncMetrics, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cartsync: cart store is required")
	}
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cartsync: cart API is required")
	}
	if queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cartsync: queue is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cartsync: logger is required")
	}

	s := &Service{
		store:   store,
		api:     api,
		queue:   queue,
		metrics: mets,
		logg:    logg,
	}
	store.OnMutation(s.onMutation)
	return s, nil
}

// MergeOnLogin reconciles local and remote carts once per session.
// Both sides keep the larger quantity for shared products so neither
// side silently loses items. Calling it again is a no-op until Reset;
// a concurrent caller waits for the running merge and then no-ops.
func (s *Service) MergeOnLogin(ctx context.Context) error {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	s.mu.Lock()
	if s.merged {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	localBefore := s.store.Lines()

	remoteLines, err := s.api.GetCart(ctx)
	if err != nil {
		s.metrics.IncRemoteCall("cart", "failure")
		return pkgerrors.Wrap(pkgerrors.CodeRemoteFailure, err, "fetch remote cart")
	}
	s.metrics.IncRemoteCall("cart", "success")

	merged := mergeLines(localBefore, remoteLines)
	s.store.ReplaceAll(ctx, merged)

	if len(localBefore) > 0 {
		if err := s.api.MergeLines(ctx, toRemoteLines(merged)); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("cartsync: merge push-back failed: %v", err))
		}
	}

	s.mu.Lock()
	s.merged = true
	s.mu.Unlock()
	return nil
}

// Merged reports whether the one-shot login merge already ran.
func (s *Service) Merged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merged
}

// Reset re-arms the one-shot merge guard. Called on logout.
func (s *Service) Reset() {
	s.mu.Lock()
	s.merged = false
	s.mu.Unlock()
}

// mergeLines keeps the remote ordering, takes max quantity for shared
// products, and appends local-only lines.
func mergeLines(local []cart.Line, remoteLines []remote.CartLine) []cart.Line {
	merged := make([]cart.Line, 0, len(remoteLines)+len(local))
	seen := make(map[string]int, len(remoteLines))
	for _, rl := range remoteLines {
		seen[rl.ProductID] = len(merged)
		merged = append(merged, cart.Line{
			ProductID: rl.ProductID,
			Name:      rl.Name,
			Image:     rl.Image,
			Quantity:  rl.Quantity,
			UnitPrice: rl.UnitPrice,
		})
	}
	for _, ll := range local {
		idx, ok := seen[ll.ProductID]
		if !ok {
			merged = append(merged, ll)
			continue
		}
		if ll.Quantity > merged[idx].Quantity {
			merged[idx].Quantity = ll.Quantity
			merged[idx].UnitPrice = ll.UnitPrice
		}
		if merged[idx].Name == "" {
			merged[idx].Name = ll.Name
			merged[idx].Image = ll.Image
		}
	}
	return merged
}

func toRemoteLines(lines []cart.Line) []remote.CartLine {
	out := make([]remote.CartLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, remote.CartLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return out
}

// onMutation turns a local cart change into a write-behind job.
func (s *Service) onMutation(m cart.Mutation) {
	ctx := context.Background()
	switch {
	case m.Kind == cart.MutationClear:
		s.queue.enqueue(ctx, job{kind: jobClear})
	case m.Quantity == 0:
		s.queue.enqueue(ctx, job{kind: jobRemoveLine, productID: m.ProductID})
	default:
		j := job{kind: jobSetLine, productID: m.ProductID, quantity: m.Quantity}
		for _, line := range s.store.Lines() {
			if line.ProductID == m.ProductID {
				j.name = line.Name
				j.image = line.Image
				j.unitPrice = line.UnitPrice
				break
			}
		}
		s.queue.enqueue(ctx, j)
	}
}
