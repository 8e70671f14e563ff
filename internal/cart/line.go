package cart

import (
	"github.com/shopspring/decimal"
)

// MaxPerItem caps the quantity of any single product in the cart.
const MaxPerItem = 10

// Line is one product entry with its display snapshot and the unit price
// resolved from tier rules at the current quantity.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Subtotal returns unit price times quantity for the line.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MutationKind distinguishes outbound cart mutations.
type MutationKind string

const (
	// MutationSet mirrors a line's quantity remotely; zero removes it.
	MutationSet MutationKind = "set"
	// MutationClear empties the remote cart.
	MutationClear MutationKind = "clear"
)

// Mutation describes one cart change to propagate to the remote store.
type Mutation struct {
	Kind      MutationKind
	ProductID string
	Quantity  int
}

// AddedSnapshot carries the display data emitted when a line is added,
// consumed by toast and analytics listeners.
type AddedSnapshot struct {
	ProductID string
	Name      string
	Image     string
	Quantity  int
}
