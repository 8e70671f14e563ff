package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mystore-sync/api/responses"
	"github.com/angelmondragon/mystore-sync/api/validators"
	"github.com/angelmondragon/mystore-sync/internal/cart"
	"github.com/angelmondragon/mystore-sync/internal/cartsync"
	"github.com/angelmondragon/mystore-sync/internal/catalog"
	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

type productPayload struct {
	ID         string             `json:"id" validate:"required"`
	Name       string             `json:"name"`
	Image      string             `json:"image"`
	Price      decimal.Decimal    `json:"price"`
	TierPrices []tierPricePayload `json:"tierPrices"`
}

type tierPricePayload struct {
	MinQty int             `json:"minQty" validate:"min=1"`
	Price  decimal.Decimal `json:"price"`
}

func (p productPayload) toProduct() *catalog.Product {
	tiers := make([]catalog.TierPrice, 0, len(p.TierPrices))
	for _, tier := range p.TierPrices {
		tiers = append(tiers, catalog.TierPrice{MinQty: tier.MinQty, Price: tier.Price})
	}
	return &catalog.Product{
		ID:         p.ID,
		Name:       p.Name,
		Image:      p.Image,
		Price:      p.Price,
		TierPrices: tiers,
	}
}

type cartLineResponse struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Items []cartLineResponse `json:"items"`
	Count int                `json:"count"`
	Total decimal.Decimal    `json:"total"`
}

func newCartResponse(store *cart.Store) cartResponse {
	lines := store.Lines()
	items := make([]cartLineResponse, 0, len(lines))
	for _, line := range lines {
		items = append(items, cartLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal(),
		})
	}
	return cartResponse{Items: items, Count: store.Count(), Total: store.Total()}
}

// CartView returns the current cart contents.
func CartView(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

type addItemRequest struct {
	Product  productPayload `json:"product" validate:"required"`
	Quantity int            `json:"quantity" validate:"min=1"`
}

// CartAddItem adds quantity of a product to the cart.
func CartAddItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := store.AddLine(r.Context(), payload.Product.toProduct(), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, line)
	}
}

type setQuantityRequest struct {
	Product  productPayload `json:"product" validate:"required"`
	Quantity int            `json:"quantity" validate:"min=1"`
}

// CartSetQuantity changes a line's quantity and reprices it.
func CartSetQuantity(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Product.ID != chi.URLParam(r, "productID") {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id mismatch"))
			return
		}

		line, err := store.SetQuantity(r.Context(), payload.Product.toProduct(), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

// CartRemoveItem deletes one line from the cart.
func CartRemoveItem(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.RemoveLine(r.Context(), chi.URLParam(r, "productID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// CartClear empties the cart.
func CartClear(store *cart.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	}
}

// CartMerge runs the one-shot login reconciliation against the remote
// cart.
func CartMerge(store *cart.Store, sync *cartsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sync.MergeOnLogin(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(store))
	}
}
