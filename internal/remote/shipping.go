package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
)

// ShippingClient fetches delivery quotes from the shipping collaborator.
type ShippingClient struct {
	transport *transport
}

// NewShippingClient builds a shipping client against the given base URL.
func NewShippingClient(baseURL string, timeout time.Duration, opts ...Option) (*ShippingClient, error) {
	t, err := newTransport(baseURL, timeout, opts...)
	if err != nil {
		return nil, err
	}
	return &ShippingClient{transport: t}, nil
}

// Quote returns the shipping fee for an order subtotal.
func (c *ShippingClient) Quote(ctx context.Context, subtotal decimal.Decimal) (decimal.Decimal, error) {
	payload := struct {
		Subtotal decimal.Decimal `json:"subtotal"`
	}{Subtotal: subtotal}

	var resp struct {
		Fee decimal.Decimal `json:"fee"`
	}
	if err := c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodPost, "/api/shipping/quote", payload, &resp); err != nil {
		return decimal.Zero, err
	}
	if resp.Fee.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeRemoteFailure, "negative shipping fee")
	}
	return resp.Fee, nil
}
