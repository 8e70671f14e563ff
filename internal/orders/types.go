package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mystore-sync/internal/identity"
	"github.com/angelmondragon/mystore-sync/internal/remote"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// KnownStatus reports whether s is one of the lifecycle states.
func KnownStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Item is one frozen line of an order.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Totals is the frozen price breakdown captured at checkout.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Order is a placed order as seen by this client.
type Order struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Status        Status    `json:"status"`
	Items         []Item    `json:"items"`
	Totals        Totals    `json:"totals"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	TransactionID string    `json:"transactionId,omitempty"`
	CouponCode    string    `json:"couponCode,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Draft is the input to order creation: frozen items and totals plus
// payment details.
type Draft struct {
	UserID        string
	Items         []Item
	Totals        Totals
	PaymentMethod string
	TransactionID string
	CouponCode    string
}

// Scope identifies which order list a caller may see.
type Scope string

const (
	// ScopeAdminAll covers every order in the system.
	ScopeAdminAll Scope = "admin:all"
)

// ScopeForUser returns the scope covering one user's own orders.
func ScopeForUser(userID string) Scope {
	return Scope("user:own:" + userID)
}

// ScopeFor resolves the scope the given user is entitled to.
func ScopeFor(user *identity.User) Scope {
	if user == nil {
		return ""
	}
	if user.IsAdmin() {
		return ScopeAdminAll
	}
	return ScopeForUser(user.ID)
}

// Covers reports whether an order belongs in the scope's list.
func (s Scope) Covers(order Order) bool {
	if s == ScopeAdminAll {
		return true
	}
	return s == ScopeForUser(order.UserID)
}

func fromRemote(in remote.Order) Order {
	items := make([]Item, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return Order{
		ID:            in.ID,
		UserID:        in.UserID,
		Status:        Status(in.Status),
		Items:         items,
		Totals:        Totals(in.Totals),
		PaymentMethod: in.PaymentMethod,
		TransactionID: in.TransactionID,
		CouponCode:    in.CouponCode,
		CreatedAt:     in.CreatedAt,
	}
}

func toRemoteCreate(draft Draft) remote.CreateOrderRequest {
	items := make([]remote.OrderItem, 0, len(draft.Items))
	for _, item := range draft.Items {
		items = append(items, remote.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return remote.CreateOrderRequest{
		UserID:        draft.UserID,
		Items:         items,
		Totals:        remote.OrderTotals(draft.Totals),
		PaymentMethod: draft.PaymentMethod,
		TransactionID: draft.TransactionID,
		CouponCode:    draft.CouponCode,
	}
}
