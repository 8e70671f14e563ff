package events

import (
	"strings"

	"github.com/angelmondragon/mystore-sync/internal/orders"
)

// Type discriminates the server-push notifications.
type Type string

const (
	TypeOrderCreated Type = "order.created"
	TypeOrderUpdated Type = "order.updated"
)

// Event is one server-push order notification.
type Event struct {
	EventID string        `json:"eventId,omitempty"`
	Type    Type          `json:"type"`
	OrderID string        `json:"orderId"`
	Status  orders.Status `json:"status,omitempty"`
	UserID  string        `json:"userId,omitempty"`
}

// Valid reports whether the event carries an order identifier.
func (e Event) Valid() bool {
	return strings.TrimSpace(e.OrderID) != ""
}
