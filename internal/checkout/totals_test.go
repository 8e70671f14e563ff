package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mystore-sync/internal/cart"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
)

func linesWithSubtotal100() []cart.Line {
	return []cart.Line{
		{ProductID: "p1", Quantity: 4, UnitPrice: decimal.NewFromInt(10)},
		{ProductID: "p2", Quantity: 3, UnitPrice: decimal.NewFromInt(20)},
	}
}

func TestCalculateNoCoupon(t *testing.T) {
	totals := Calculate(linesWithSubtotal100(), nil)

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, totals.Shipping.Equal(decimal.NewFromInt(25)))
	assert.True(t, totals.Discount.IsZero())
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(15)))
	assert.True(t, totals.GrandTotal.Equal(decimal.NewFromInt(140)))
}

func TestCalculatePercentCoupon(t *testing.T) {
	coupon, ok := LookupCoupon("SAVE10")
	require.True(t, ok)

	totals := Calculate(linesWithSubtotal100(), &coupon)

	assert.True(t, totals.Discount.Equal(decimal.NewFromInt(10)))
	assert.True(t, totals.Tax.Equal(decimal.RequireFromString("13.5")))
	assert.True(t, totals.Shipping.Equal(decimal.NewFromInt(25)))
	assert.True(t, totals.GrandTotal.Equal(decimal.RequireFromString("128.5")))
}

func TestCalculateFixedCouponCapsAtSubtotal(t *testing.T) {
	coupon, ok := LookupCoupon("FLAT25")
	require.True(t, ok)

	lines := []cart.Line{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}}
	totals := Calculate(lines, &coupon)

	assert.True(t, totals.Discount.Equal(decimal.NewFromInt(10)))
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Shipping.Equal(decimal.NewFromInt(25)))
	assert.True(t, totals.GrandTotal.Equal(decimal.NewFromInt(25)))
}

func TestCalculateEmptyCartHasNoShipping(t *testing.T) {
	totals := Calculate(nil, nil)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.GrandTotal.IsZero())
}

func TestCalculateRoundsToTwoDecimals(t *testing.T) {
	lines := []cart.Line{{ProductID: "p1", Quantity: 3, UnitPrice: decimal.RequireFromString("3.333")}}
	totals := Calculate(lines, nil)

	assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString("10.00")), totals.Subtotal.String())
	assert.True(t, totals.Tax.Equal(decimal.RequireFromString("1.50")))
}

func TestCouponStateRejectsUnknownCodeKeepsActive(t *testing.T) {
	state := NewCouponState()

	_, err := state.Apply("SAVE10")
	require.NoError(t, err)

	_, err = state.Apply("BOGUS")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidCoupon))

	active := state.Active()
	require.NotNil(t, active)
	assert.Equal(t, "SAVE10", active.Code)

	state.Remove()
	assert.Nil(t, state.Active())
}

func TestCouponLookupIsCaseInsensitive(t *testing.T) {
	coupon, ok := LookupCoupon(" save10 ")
	require.True(t, ok)
	assert.Equal(t, "SAVE10", coupon.Code)
}
