package money

import "github.com/shopspring/decimal"

// Round2 rounds a monetary amount to two decimal places, half away from zero.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// FromFloat converts a float amount into a decimal rounded to two places.
func FromFloat(v float64) decimal.Decimal {
	return Round2(decimal.NewFromFloat(v))
}

// FromInt converts whole currency units into a decimal amount.
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Percent returns base*(pct/100) rounded to two places.
func Percent(base decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(pct).Div(decimal.NewFromInt(100)))
}

// Min returns the smaller of two amounts.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

// Equal reports whether two amounts are numerically equal.
func Equal(a, b decimal.Decimal) bool {
	return a.Equal(b)
}
