package checkout

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
)

// couponBank is the static code lookup table.
var couponBank = map[string]Coupon{
	"SAVE10": {Code: "SAVE10", Kind: CouponPercent, Value: decimal.NewFromInt(10)},
	"FLAT25": {Code: "FLAT25", Kind: CouponFixed, Value: decimal.NewFromInt(25)},
}

// LookupCoupon resolves a coupon code against the static bank.
func LookupCoupon(code string) (Coupon, bool) {
	coupon, ok := couponBank[strings.ToUpper(strings.TrimSpace(code))]
	return coupon, ok
}

// CouponState tracks the at-most-one active coupon for a session.
type CouponState struct {
	mu     sync.Mutex
	active *Coupon
}

// NewCouponState starts with no active coupon.
func NewCouponState() *CouponState {
	return &CouponState{}
}

// Apply activates the coupon for the given code. An unknown code fails
// and leaves the previously active coupon untouched.
func (s *CouponState) Apply(code string) (Coupon, error) {
	coupon, ok := LookupCoupon(code)
	if !ok {
		return Coupon{}, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon code is not valid")
	}
	s.mu.Lock()
	s.active = &coupon
	s.mu.Unlock()
	return coupon, nil
}

// Active returns the currently applied coupon, if any.
func (s *CouponState) Active() *Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	coupon := *s.active
	return &coupon
}

// Remove drops the active coupon.
func (s *CouponState) Remove() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}
