package notification

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"ecommerce/internal/domain/event"
)

// Template keys used by the lifecycle consumers.
const (
	TemplateOrderConfirmation = "order-confirmation"
	TemplateOrderCancelled    = "order-cancelled"
	TemplateOrderShipped      = "order-shipped"
	TemplateOrderDelivered    = "order-delivered"
	TemplatePaymentReceipt    = "payment-receipt"
	TemplatePaymentFailed     = "payment-failed"
	TemplateBackInStock       = "back-in-stock"
)

// NotificationService fans lifecycle facts out to the configured channels.
// All sends are best-effort: a failed send is logged and swallowed so the
// triggering transition is never rolled back or retried because of it.
type NotificationService interface {
	NotifyOrderCreated(ctx context.Context, ev *event.OrderCreatedEvent)
	NotifyOrderCancelled(ctx context.Context, ev *event.OrderCancelledEvent)
	NotifyOrderShipped(ctx context.Context, ev *event.OrderShippedEvent)
	NotifyOrderDelivered(ctx context.Context, ev *event.OrderDeliveredEvent)
	NotifyPaymentCompleted(ctx context.Context, ev *event.PaymentCompletedEvent)
	NotifyPaymentFailed(ctx context.Context, ev *event.PaymentFailedEvent)
	NotifyStockUpdated(ctx context.Context, ev *event.StockUpdatedEvent)
}

type notificationService struct {
	senders map[Channel]Sender
	logger  *zap.Logger
}

func NewNotificationService(senders map[Channel]Sender, logger *zap.Logger) NotificationService {
	return &notificationService{senders: senders, logger: logger}
}

func (s *notificationService) NotifyOrderCreated(ctx context.Context, ev *event.OrderCreatedEvent) {
	s.send(ctx, clientRecipient(ev.ClientID), TemplateOrderConfirmation, map[string]string{
		"order_id": ev.OrderID,
		"total":    formatAmount(ev.Total),
	})
}

func (s *notificationService) NotifyOrderCancelled(ctx context.Context, ev *event.OrderCancelledEvent) {
	s.send(ctx, clientRecipient(ev.ClientID), TemplateOrderCancelled, map[string]string{
		"order_id": ev.OrderID,
		"reason":   ev.Reason,
	})
}

func (s *notificationService) NotifyOrderShipped(ctx context.Context, ev *event.OrderShippedEvent) {
	s.send(ctx, clientRecipient(ev.ClientID), TemplateOrderShipped, map[string]string{
		"order_id":        ev.OrderID,
		"tracking_number": ev.TrackingNumber,
		"carrier":         ev.Carrier,
	})
}

func (s *notificationService) NotifyOrderDelivered(ctx context.Context, ev *event.OrderDeliveredEvent) {
	s.send(ctx, clientRecipient(ev.ClientID), TemplateOrderDelivered, map[string]string{
		"order_id":    ev.OrderID,
		"received_by": ev.ReceivedBy,
	})
}

func (s *notificationService) NotifyPaymentCompleted(ctx context.Context, ev *event.PaymentCompletedEvent) {
	s.send(ctx, orderRecipient(ev.OrderID), TemplatePaymentReceipt, map[string]string{
		"order_id":       ev.OrderID,
		"amount":         formatAmount(ev.Amount),
		"transaction_id": ev.TransactionID,
	})
}

func (s *notificationService) NotifyPaymentFailed(ctx context.Context, ev *event.PaymentFailedEvent) {
	s.send(ctx, orderRecipient(ev.OrderID), TemplatePaymentFailed, map[string]string{
		"order_id":      ev.OrderID,
		"error_code":    ev.ErrorCode,
		"error_message": ev.ErrorMessage,
	})
}

// NotifyStockUpdated only reacts to in-stock transitions; other changes are
// informational noise for this service.
func (s *notificationService) NotifyStockUpdated(ctx context.Context, ev *event.StockUpdatedEvent) {
	switch {
	case ev.IsBackInStock():
		s.send(ctx, productWatchers(ev.ProductID), TemplateBackInStock, map[string]string{
			"product_id":    strconv.FormatInt(ev.ProductID, 10),
			"current_stock": strconv.Itoa(ev.CurrentStock),
		})
	case ev.IsOutOfStock():
		s.logger.Warn("Product is now out of stock",
			zap.Int64("product_id", ev.ProductID))
	default:
		s.logger.Debug("Stock updated, no notification needed",
			zap.Int64("product_id", ev.ProductID),
			zap.Int("previous_stock", ev.PreviousStock),
			zap.Int("current_stock", ev.CurrentStock))
	}
}

func (s *notificationService) send(ctx context.Context, recipient, templateKey string, data map[string]string) {
	for channel, sender := range s.senders {
		if err := sender.Send(ctx, recipient, templateKey, data); err != nil {
			s.logger.Warn("Notification send failed, continuing",
				zap.String("channel", string(channel)),
				zap.String("recipient", recipient),
				zap.String("template", templateKey),
				zap.Error(err))
		}
	}
}

func clientRecipient(clientID int64) string {
	return fmt.Sprintf("client:%d", clientID)
}

func orderRecipient(orderID string) string {
	return "order:" + orderID
}

func productWatchers(productID int64) string {
	return fmt.Sprintf("product-watchers:%d", productID)
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
