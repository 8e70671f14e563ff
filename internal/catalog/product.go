package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TierPrice discounts the unit price once the quantity reaches MinQty.
type TierPrice struct {
	MinQty int             `json:"minQty"`
	Price  decimal.Decimal `json:"price"`
}

// Product is the subset of catalog data the cart needs: identity, a display
// snapshot, and pricing rules.
type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Image      string          `json:"image"`
	Price      decimal.Decimal `json:"price"`
	TierPrices []TierPrice     `json:"tierPrices,omitempty"`
}

// Valid reports whether the product can be added to a cart.
func (p *Product) Valid() bool {
	return p != nil && strings.TrimSpace(p.ID) != ""
}

// UnitPriceFor resolves the effective unit price for the given quantity:
// the price of the tier with the greatest MinQty not exceeding qty, else the
// base price.
func (p *Product) UnitPriceFor(qty int) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	if len(p.TierPrices) == 0 {
		return p.Price
	}

	tiers := make([]TierPrice, len(p.TierPrices))
	copy(tiers, p.TierPrices)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinQty < tiers[j].MinQty })

	chosen := p.Price
	for _, tier := range tiers {
		if qty < tier.MinQty {
			break
		}
		chosen = tier.Price
	}
	return chosen
}
