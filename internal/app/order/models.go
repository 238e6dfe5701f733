package order

import "ecommerce/internal/domain"

type CreateOrderItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type CreateOrderRequest struct {
	ClientID        int64             `json:"client_id"`
	PaymentType     string            `json:"payment_type"`
	ShippingAddress string            `json:"shipping_address"`
	BillingAddress  string            `json:"billing_address"`
	Items           []CreateOrderItem `json:"items"`
}

type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

type DeliverOrderRequest struct {
	ReceivedBy string `json:"received_by"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type OrderItemResponse struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type OrderResponse struct {
	ID                   string              `json:"id"`
	ClientID             int64               `json:"client_id"`
	Status               string              `json:"status"`
	PaymentType          string              `json:"payment_type"`
	Total                float64             `json:"total"`
	ShippingAddress      string              `json:"shipping_address"`
	BillingAddress       string              `json:"billing_address"`
	PaymentTransactionID string              `json:"payment_transaction_id,omitempty"`
	PaymentGateway       string              `json:"payment_gateway,omitempty"`
	TrackingNumber       string              `json:"tracking_number,omitempty"`
	Carrier              string              `json:"carrier,omitempty"`
	CancellationReason   string              `json:"cancellation_reason,omitempty"`
	Items                []OrderItemResponse `json:"items"`
}

func mapOrderToResponse(order *domain.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return &OrderResponse{
		ID:                   order.ID,
		ClientID:             order.ClientID,
		Status:               string(order.Status),
		PaymentType:          string(order.PaymentType),
		Total:                order.Total,
		ShippingAddress:      order.ShippingAddress,
		BillingAddress:       order.BillingAddress,
		PaymentTransactionID: order.PaymentTransactionID,
		PaymentGateway:       order.PaymentGateway,
		TrackingNumber:       order.TrackingNumber,
		Carrier:              order.Carrier,
		CancellationReason:   order.CancellationReason,
		Items:                items,
	}
}
