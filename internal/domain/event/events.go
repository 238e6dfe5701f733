// Package event defines the integration events exchanged between services.
// Events are immutable facts: write-once, broadcast, possibly delivered more
// than once and out of relative order across aggregates. Payloads carry
// denormalized snapshots so consumers never have to query the producer back.
package event

import "time"

// Event type names. The broker topic for each is derived from the type name,
// see messaging.TopicName.
const (
	TypeOrderCreated     = "OrderCreatedEvent"
	TypeOrderCancelled   = "OrderCancelledEvent"
	TypeOrderShipped     = "OrderShippedEvent"
	TypeOrderDelivered   = "OrderDeliveredEvent"
	TypePaymentCompleted = "PaymentCompletedEvent"
	TypePaymentFailed    = "PaymentFailedEvent"
	TypeStockUpdated     = "StockUpdatedEvent"
)

// Meta is embedded in every integration event.
type Meta struct {
	EventID       string    `json:"event_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderCreatedEvent struct {
	Meta
	OrderID  string      `json:"order_id"`
	ClientID int64       `json:"client_id"`
	Total    float64     `json:"total"`
	Items    []OrderItem `json:"items"`
}

type OrderCancelledEvent struct {
	Meta
	OrderID  string      `json:"order_id"`
	ClientID int64       `json:"client_id"`
	Total    float64     `json:"total"`
	Reason   string      `json:"reason"`
	Items    []OrderItem `json:"items"`
}

type OrderShippedEvent struct {
	Meta
	OrderID         string `json:"order_id"`
	ClientID        int64  `json:"client_id"`
	TrackingNumber  string `json:"tracking_number"`
	Carrier         string `json:"carrier"`
	ShippingAddress string `json:"shipping_address"`
}

type OrderDeliveredEvent struct {
	Meta
	OrderID    string      `json:"order_id"`
	ClientID   int64       `json:"client_id"`
	ReceivedBy string      `json:"received_by,omitempty"`
	Items      []OrderItem `json:"items"`
}

type PaymentCompletedEvent struct {
	Meta
	OrderID       string  `json:"order_id"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	TransactionID string  `json:"transaction_id"`
	Gateway       string  `json:"gateway"`
}

type PaymentFailedEvent struct {
	Meta
	OrderID      string  `json:"order_id"`
	Amount       float64 `json:"amount"`
	ErrorCode    string  `json:"error_code,omitempty"`
	ErrorMessage string  `json:"error_message"`
}

// StockUpdatedEvent carries both sides of the change so consumers can derive
// in-stock transitions without re-querying the ledger.
type StockUpdatedEvent struct {
	Meta
	ProductID     int64 `json:"product_id"`
	PreviousStock int   `json:"previous_stock"`
	CurrentStock  int   `json:"current_stock"`
}

func (e StockUpdatedEvent) IsBackInStock() bool {
	return e.PreviousStock <= 0 && e.CurrentStock > 0
}

func (e StockUpdatedEvent) IsOutOfStock() bool {
	return e.CurrentStock <= 0
}
