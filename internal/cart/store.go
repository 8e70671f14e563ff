package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mystore-sync/internal/catalog"
	"github.com/angelmondragon/mystore-sync/internal/identity"
	"github.com/angelmondragon/mystore-sync/internal/notify"
	"github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

// Store holds the in-memory cart and mirrors every change into the
// local cache. All mutations require an authenticated user.
type Store struct {
	mu sync.Mutex

	identity identity.Provider
	persist  Persister
	notify   notify.Sink
	logg     *logger.Logger

	lines map[string]*Line
	order []string

	mutationSubs []func(Mutation)
	addedSubs    []func(AddedSnapshot)
}

// NewStore constructs a cart store. The persister and sink may be nil.
func NewStore(provider identity.Provider, persist Persister, sink notify.Sink, logg *logger.Logger) (*Store, error) {
	if provider == nil {
		return nil, errors.New(errors.CodeInternal, "cart: identity provider is required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeInternal, "cart: logger is required")
	}
	if persist == nil {
		persist = NopPersister{}
	}
	return &Store{
		identity: provider,
		persist:  persist,
		notify:   notify.OrDefault(sink),
		logg:     logg,
		lines:    make(map[string]*Line),
	}, nil
}

// OnMutation registers a listener invoked after every successful change.
func (s *Store) OnMutation(fn func(Mutation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutationSubs = append(s.mutationSubs, fn)
}

// OnAdded registers a listener invoked after an item is added.
func (s *Store) OnAdded(fn func(AddedSnapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addedSubs = append(s.addedSubs, fn)
}

func (s *Store) requireUser(ctx context.Context) error {
	if s.identity.Current(ctx) == nil {
		s.notify.Warning(ctx, "Login required", "please login to manage your cart")
		return errors.New(errors.CodeAuthRequired, "please login first")
	}
	return nil
}

// AddLine adds quantity of the product, merging into an existing line
// when present. The stored quantity never exceeds MaxPerItem and the
// unit price is re-resolved against the product's volume tiers.
func (s *Store) AddLine(ctx context.Context, product *catalog.Product, quantity int) (Line, error) {
	if product == nil || !product.Valid() {
		return Line{}, errors.New(errors.CodeInvalidProduct, "invalid product")
	}
	if err := s.requireUser(ctx); err != nil {
		return Line{}, err
	}
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	line, ok := s.lines[product.ID]
	if !ok {
		line = &Line{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
		}
		s.lines[product.ID] = line
		s.order = append(s.order, product.ID)
	}
	next := line.Quantity + quantity
	if next > MaxPerItem {
		next = MaxPerItem
	}
	line.Quantity = next
	line.UnitPrice = product.UnitPriceFor(next)
	snapshot := *line
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	s.emitAdded(AddedSnapshot{
		ProductID: snapshot.ProductID,
		Name:      snapshot.Name,
		Image:     snapshot.Image,
		Quantity:  snapshot.Quantity,
	})
	s.emitMutation(Mutation{Kind: MutationSet, ProductID: snapshot.ProductID, Quantity: snapshot.Quantity})
	s.notify.Success(ctx, "Added to cart", snapshot.Name)
	return snapshot, nil
}

// SetQuantity sets the line's quantity, clamped to [1, MaxPerItem],
// and re-resolves its tier price.
func (s *Store) SetQuantity(ctx context.Context, product *catalog.Product, quantity int) (Line, error) {
	if product == nil || !product.Valid() {
		return Line{}, errors.New(errors.CodeInvalidProduct, "invalid product")
	}
	if err := s.requireUser(ctx); err != nil {
		return Line{}, err
	}

	if quantity < 1 {
		quantity = 1
	}
	if quantity > MaxPerItem {
		quantity = MaxPerItem
	}

	s.mu.Lock()
	line, ok := s.lines[product.ID]
	if !ok {
		s.mu.Unlock()
		return Line{}, errors.New(errors.CodeNotFound, "item is not in the cart")
	}
	line.Quantity = quantity
	line.UnitPrice = product.UnitPriceFor(quantity)
	snapshot := *line
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	s.emitMutation(Mutation{Kind: MutationSet, ProductID: snapshot.ProductID, Quantity: snapshot.Quantity})
	return snapshot, nil
}

// RemoveLine removes the product from the cart. Removing an absent
// product is a no-op.
func (s *Store) RemoveLine(ctx context.Context, productID string) error {
	if err := s.requireUser(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if _, ok := s.lines[productID]; !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.lines, productID)
	s.order = removeID(s.order, productID)
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	s.emitMutation(Mutation{Kind: MutationSet, ProductID: productID, Quantity: 0})
	return nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.requireUser(ctx); err != nil {
		return err
	}
	s.clearAll(ctx)
	return nil
}

func (s *Store) clearAll(ctx context.Context) {
	s.mu.Lock()
	s.lines = make(map[string]*Line)
	s.order = nil
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	s.emitMutation(Mutation{Kind: MutationClear})
}

// ReplaceAll swaps the whole cart for the given lines. Used by the
// login merge, which has already decided the final quantities.
func (s *Store) ReplaceAll(ctx context.Context, lines []Line) {
	s.mu.Lock()
	s.lines = make(map[string]*Line, len(lines))
	s.order = make([]string, 0, len(lines))
	for i := range lines {
		line := lines[i]
		if line.Quantity > MaxPerItem {
			line.Quantity = MaxPerItem
		}
		if _, ok := s.lines[line.ProductID]; ok {
			continue
		}
		s.lines[line.ProductID] = &line
		s.order = append(s.order, line.ProductID)
	}
	s.mu.Unlock()

	s.persistSnapshot(ctx)
}

// Load hydrates the cart from the local cache. Failure to read the
// cache leaves the cart empty.
func (s *Store) Load(ctx context.Context) {
	lines, err := s.persist.LoadLines(ctx)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("cart: failed to load cached lines: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = make(map[string]*Line, len(lines))
	s.order = make([]string, 0, len(lines))
	for i := range lines {
		line := lines[i]
		s.lines[line.ProductID] = &line
		s.order = append(s.order, line.ProductID)
	}
}

// Lines returns the cart contents in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.lines[id])
	}
	return out
}

// Count returns the total quantity across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, line := range s.lines {
		total += line.Quantity
	}
	return total
}

// Total returns the sum of line subtotals.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, id := range s.order {
		total = total.Add(s.lines[id].Subtotal())
	}
	return total
}

func (s *Store) persistSnapshot(ctx context.Context) {
	if err := s.persist.SaveLines(ctx, s.Lines()); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("cart: failed to persist lines: %v", err))
	}
}

func (s *Store) emitMutation(m Mutation) {
	s.mu.Lock()
	subs := make([]func(Mutation), len(s.mutationSubs))
	copy(subs, s.mutationSubs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(m)
	}
}

func (s *Store) emitAdded(snap AddedSnapshot) {
	s.mu.Lock()
	subs := make([]func(AddedSnapshot), len(s.addedSubs))
	copy(subs, s.addedSubs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
