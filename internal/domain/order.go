package domain

import (
	"errors"
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	OrderStatusPaymentFailed   OrderStatus = "PAYMENT_FAILED"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusShipped         OrderStatus = "SHIPPED"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

type PaymentType string

const (
	PaymentTypeCreditCard   PaymentType = "CREDIT_CARD"
	PaymentTypeDebitCard    PaymentType = "DEBIT_CARD"
	PaymentTypePayPal       PaymentType = "PAYPAL"
	PaymentTypeBankTransfer PaymentType = "BANK_TRANSFER"
	PaymentTypeCash         PaymentType = "CASH"
)

var (
	ErrInvalidOrder      = errors.New("invalid order data")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

type OrderItem struct {
	ProductID int64
	Quantity  int
	UnitPrice float64
}

func (i OrderItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// Order is the order aggregate. Address fields are snapshots captured at
// creation; Total is fixed at creation and never recomputed from catalog
// prices. All status changes go through the MarkAs* methods.
type Order struct {
	ID              string
	ClientID        int64
	Status          OrderStatus
	PaymentType     PaymentType
	Total           float64
	ShippingAddress string
	BillingAddress  string
	Items           []OrderItem

	PaymentTransactionID string
	PaymentGateway       string

	TrackingNumber     string
	Carrier            string
	ReceivedBy         string
	CancellationReason string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	PaidAt      *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

func NewOrder(id string, clientID int64, paymentType PaymentType, shippingAddress, billingAddress string, items []OrderItem) (*Order, error) {
	if id == "" || clientID <= 0 || len(items) == 0 {
		return nil, ErrInvalidOrder
	}
	var total float64
	for _, item := range items {
		if item.ProductID <= 0 || item.Quantity <= 0 || item.UnitPrice <= 0 {
			return nil, ErrInvalidOrder
		}
		total += item.LineTotal()
	}
	now := time.Now().UTC()
	return &Order{
		ID:              id,
		ClientID:        clientID,
		Status:          OrderStatusAwaitingPayment,
		PaymentType:     paymentType,
		Total:           total,
		ShippingAddress: shippingAddress,
		BillingAddress:  billingAddress,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

// MarkAsPaid applies a payment-completed fact. Applying the same fact twice
// is a no-op: an order already paid with the same transaction id reports
// success without touching the aggregate.
func (o *Order) MarkAsPaid(transactionID, gateway string) error {
	if o.Status == OrderStatusPaid && o.PaymentTransactionID == transactionID {
		return nil
	}
	if o.Status != OrderStatusAwaitingPayment && o.Status != OrderStatusPaymentFailed {
		return fmt.Errorf("%w: cannot pay order in status %s", ErrInvalidTransition, o.Status)
	}
	now := time.Now().UTC()
	o.Status = OrderStatusPaid
	o.PaymentTransactionID = transactionID
	o.PaymentGateway = gateway
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkAsPaymentFailed is ignored on terminal orders; a later successful
// payment retry can still move a PAYMENT_FAILED order to PAID.
func (o *Order) MarkAsPaymentFailed() error {
	if o.IsTerminal() {
		return fmt.Errorf("%w: cannot fail payment of order in status %s", ErrInvalidTransition, o.Status)
	}
	if o.Status == OrderStatusPaymentFailed {
		return nil
	}
	o.Status = OrderStatusPaymentFailed
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *Order) MarkAsShipped(trackingNumber, carrier string) error {
	if o.Status == OrderStatusShipped {
		return nil
	}
	if o.Status != OrderStatusPaid {
		return fmt.Errorf("%w: cannot ship order in status %s", ErrInvalidTransition, o.Status)
	}
	now := time.Now().UTC()
	o.Status = OrderStatusShipped
	o.TrackingNumber = trackingNumber
	o.Carrier = carrier
	o.ShippedAt = &now
	o.UpdatedAt = now
	return nil
}

func (o *Order) MarkAsDelivered(receivedBy string) error {
	if o.Status == OrderStatusDelivered {
		return nil
	}
	if o.Status != OrderStatusShipped {
		return fmt.Errorf("%w: cannot deliver order in status %s", ErrInvalidTransition, o.Status)
	}
	now := time.Now().UTC()
	o.Status = OrderStatusDelivered
	o.ReceivedBy = receivedBy
	o.DeliveredAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkAsCancelled is allowed before shipment only. Cancelled orders are kept
// for audit, never deleted.
func (o *Order) MarkAsCancelled(reason string) error {
	if o.Status == OrderStatusCancelled {
		return nil
	}
	if o.Status != OrderStatusAwaitingPayment && o.Status != OrderStatusPaid && o.Status != OrderStatusPaymentFailed {
		return fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidTransition, o.Status)
	}
	now := time.Now().UTC()
	o.Status = OrderStatusCancelled
	o.CancellationReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now
	return nil
}
