package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mystore-sync/internal/cart"
	"github.com/angelmondragon/mystore-sync/internal/identity"
	"github.com/angelmondragon/mystore-sync/internal/orders"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

// ShippingQuoter is the optional external shipping collaborator. A
// failed or missing quote falls back to the flat default.
type ShippingQuoter interface {
	Quote(ctx context.Context, subtotal decimal.Decimal) (decimal.Decimal, error)
}

// orderCreator is the slice of the order repository checkout needs.
type orderCreator interface {
	Create(ctx context.Context, draft orders.Draft) (*orders.Order, error)
}

// Service derives live totals from the cart and turns a confirmed
// checkout into an order.
type Service struct {
	store    *cart.Store
	orders   orderCreator
	coupons  *CouponState
	identity identity.Provider
	shipping ShippingQuoter
	logg     *logger.Logger
}

// NewService wires the checkout service. The shipping quoter may be
// nil.
func NewService(store *cart.Store, creator orderCreator, coupons *CouponState, provider identity.Provider, quoter ShippingQuoter, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: cart store is required")
	}
	if creator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: order repository is required")
	}
	if coupons == nil {
		coupons = NewCouponState()
	}
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: identity provider is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout: logger is required")
	}
	return &Service{
		store:    store,
		orders:   creator,
		coupons:  coupons,
		identity: provider,
		shipping: quoter,
		logg:     logg,
	}, nil
}

// Coupons exposes the session coupon state.
func (s *Service) Coupons() *CouponState {
	return s.coupons
}

// Totals recomputes the full breakdown from the live cart and the
// active coupon. A shipping quote is attempted when a quoter is wired;
// its failure falls back to the flat default.
func (s *Service) Totals(ctx context.Context) Totals {
	lines := s.store.Lines()
	coupon := s.coupons.Active()

	base := Calculate(lines, coupon)
	if s.shipping == nil || base.Subtotal.IsZero() {
		return base
	}

	fee, err := s.shipping.Quote(ctx, base.Subtotal)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("checkout: shipping quote failed, using flat rate: %v", err))
		return base
	}
	return CalculateWithShipping(base.Subtotal, fee, coupon)
}

// PlaceOrder freezes the cart and totals into an order draft, creates
// the order, and clears the cart on success. The frozen snapshot stays
// valid even as the live cart changes afterwards.
func (s *Service) PlaceOrder(ctx context.Context, paymentMethod, transactionID string) (*orders.Order, error) {
	user := s.identity.Current(ctx)
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeAuthRequired, "please login first")
	}

	lines := s.store.Lines()
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	totals := s.Totals(ctx)

	items := make([]orders.Item, 0, len(lines))
	for _, line := range lines {
		items = append(items, orders.Item{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	draft := orders.Draft{
		UserID:        user.ID,
		Items:         items,
		Totals:        orders.Totals(totals),
		PaymentMethod: paymentMethod,
		TransactionID: transactionID,
	}
	if coupon := s.coupons.Active(); coupon != nil {
		draft.CouponCode = coupon.Code
	}

	order, err := s.orders.Create(ctx, draft)
	if err != nil {
		return nil, err
	}

	if err := s.store.Clear(ctx); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("checkout: cart clear after order failed: %v", err))
	}
	s.coupons.Remove()
	return order, nil
}
