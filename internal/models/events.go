package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventTypeOrderCreated          EventType = "order.created"
	EventTypeOrderPaymentInitiated EventType = "order.payment_initiated"
	EventTypeOrderDelivered        EventType = "order.delivered"
	EventTypeOrderCancelled        EventType = "order.cancelled"
	EventTypeOrderUnfulfilled      EventType = "order.unfulfilled"
	EventTypeOrderFulfilled        EventType = "order.fulfilled"
	EventTypeOrderPaidAfterCancel  EventType = "order.paid_after_cancel"
)

type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderEvent is published on every order lifecycle transition.
type OrderEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	GuildID     string          `json:"guild_id"`
	UserID      string          `json:"user_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	Gateway     string          `json:"gateway,omitempty"`
	PaymentID   string          `json:"payment_id,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

// NewOrderEvent snapshots an order into an event of the given type.
func NewOrderEvent(eventType EventType, o *Order) *OrderEvent {
	return &OrderEvent{
		BaseEvent:   BaseEvent{EventType: eventType},
		OrderID:     o.ID,
		GuildID:     o.GuildID,
		UserID:      o.UserID,
		ProductID:   o.ProductID,
		ProductName: o.ProductName,
		Quantity:    o.Quantity,
		TotalAmount: o.TotalAmount,
		Status:      o.Status,
		Gateway:     o.PaymentGateway,
		PaymentID:   o.PaymentID,
		Reason:      o.CancelReason,
	}
}
