package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mystore-sync/internal/cart"
	"github.com/angelmondragon/mystore-sync/pkg/money"
)

// TaxRate is the flat tax applied to the discounted subtotal.
var TaxRate = decimal.RequireFromString("0.15")

// DefaultShipping is the flat fee charged when no quote collaborator
// answers.
var DefaultShipping = decimal.NewFromInt(25)

// CouponKind distinguishes the discount rules.
type CouponKind string

const (
	CouponPercent CouponKind = "percent"
	CouponFixed   CouponKind = "fixed"
)

// Coupon is one discount rule. At most one coupon is active at a time.
type Coupon struct {
	Code  string
	Kind  CouponKind
	Value decimal.Decimal
}

// Totals is the rounded price breakdown shown at checkout and frozen
// into the order.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Calculate derives the totals for the given lines and optional coupon.
// Every figure is recomputed from scratch and rounded to two decimals.
func Calculate(lines []cart.Line, coupon *Coupon) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal())
	}
	subtotal = money.Round2(subtotal)

	return CalculateWithShipping(subtotal, shippingFor(subtotal), coupon)
}

// CalculateWithShipping derives the totals using an externally quoted
// shipping fee. Used when the shipping collaborator answered.
func CalculateWithShipping(subtotal, shipping decimal.Decimal, coupon *Coupon) Totals {
	subtotal = money.Round2(subtotal)
	shipping = money.Round2(shipping)

	discount := decimal.Zero
	if coupon != nil {
		switch coupon.Kind {
		case CouponPercent:
			discount = money.Percent(subtotal, coupon.Value)
		case CouponFixed:
			discount = money.Min(coupon.Value, subtotal)
		}
		discount = money.Round2(discount)
	}

	tax := money.Round2(subtotal.Sub(discount).Mul(TaxRate))
	grand := money.Round2(subtotal.Add(shipping).Add(tax).Sub(discount))

	return Totals{
		Subtotal:   subtotal,
		Shipping:   shipping,
		Discount:   discount,
		Tax:        tax,
		GrandTotal: grand,
	}
}

func shippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsPositive() {
		return DefaultShipping
	}
	return decimal.Zero
}
