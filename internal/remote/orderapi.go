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

// OrderItem is one frozen line inside a backend order.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderTotals is the frozen price breakdown of a backend order.
type OrderTotals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Order is the backend's representation of an order.
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Status        string      `json:"status"`
	Items         []OrderItem `json:"items"`
	Totals        OrderTotals `json:"totals"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	TransactionID string      `json:"transactionId,omitempty"`
	CouponCode    string      `json:"couponCode,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// CreateOrderRequest is the payload for creating a backend order.
type CreateOrderRequest struct {
	UserID        string      `json:"userId"`
	Items         []OrderItem `json:"items"`
	Totals        OrderTotals `json:"totals"`
	PaymentMethod string      `json:"paymentMethod"`
	TransactionID string      `json:"transactionId,omitempty"`
	CouponCode    string      `json:"couponCode,omitempty"`
}

// OrderClient talks to the backend order endpoints.
type OrderClient struct {
	transport *transport
}

// NewOrderClient builds an order client against the given base URL.
func NewOrderClient(baseURL string, timeout time.Duration, opts ...Option) (*OrderClient, error) {
	t, err := newTransport(baseURL, timeout, opts...)
	if err != nil {
		return nil, err
	}
	return &OrderClient{transport: t}, nil
}

// ListAll fetches every order. Admin only on the backend side.
func (c *OrderClient) ListAll(ctx context.Context) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodGet, "/api/orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// ListMine fetches the authenticated user's own orders.
func (c *OrderClient) ListMine(ctx context.Context) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodGet, "/api/orders/mine", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// Create submits a new order and returns the stored record.
func (c *OrderClient) Create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order items are required")
	}
	var order Order
	if err := c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodPost, "/api/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus patches the order's status and returns the updated record.
func (c *OrderClient) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ID is required")
	}
	payload := struct {
		Status string `json:"status"`
	}{Status: status}

	var order Order
	if err := c.transport.doJSON(ctx, pkgerrors.CodeRemoteFailure, http.MethodPatch,
		"/api/orders/"+url.PathEscape(orderID)+"/status", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
