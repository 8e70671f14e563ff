package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/mystore-sync/pkg/errors"
)

// CartLine is the backend's representation of one cart entry.
type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// CartClient talks to the backend cart endpoints.
type CartClient struct {
	transport *transport
}

// NewCartClient builds a cart client against the given base URL.
func NewCartClient(baseURL string, timeout time.Duration, opts ...Option) (*CartClient, error) {
	t, err := newTransport(baseURL, timeout, opts...)
	if err != nil {
		return nil, err
	}
	return &CartClient{transport: t}, nil
}

// GetCart fetches the server-side cart for the authenticated user.
func (c *CartClient) GetCart(ctx context.Context) ([]CartLine, error) {
	var resp struct {
		Items []CartLine `json:"items"`
	}
	if err := c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodGet, "/api/cart", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// SetLine upserts a single line on the server-side cart.
func (c *CartClient) SetLine(ctx context.Context, line CartLine) error {
	if strings.TrimSpace(line.ProductID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product ID is required")
	}
	return c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodPut,
		"/api/cart/items/"+url.PathEscape(line.ProductID), line, nil)
}

// RemoveLine deletes a single line from the server-side cart.
func (c *CartClient) RemoveLine(ctx context.Context, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product ID is required")
	}
	return c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodDelete,
		"/api/cart/items/"+url.PathEscape(productID), nil, nil)
}

// MergeLines pushes the merged cart to the server in one batch.
func (c *CartClient) MergeLines(ctx context.Context, lines []CartLine) error {
	payload := struct {
		Items []CartLine `json:"items"`
	}{Items: lines}
	return c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodPost, "/api/cart/merge", payload, nil)
}

// Clear empties the server-side cart.
func (c *CartClient) Clear(ctx context.Context) error {
	return c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodDelete, "/api/cart", nil, nil)
}
