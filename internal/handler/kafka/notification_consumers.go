package kafka

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"ecommerce/internal/app/notification"
	"ecommerce/internal/domain/event"
	"ecommerce/internal/messaging"
)

// Notification handlers are best-effort consumers: they always return nil so
// a failed send can never push a lifecycle fact into retry or dead-letter.

func NotificationHandlers(svc notification.NotificationService, logger *zap.Logger) map[string]messaging.Handler {
	return map[string]messaging.Handler{
		event.TypeOrderCreated: notificationHandler(logger, event.TypeOrderCreated,
			func(ctx context.Context, ev *event.OrderCreatedEvent) { svc.NotifyOrderCreated(ctx, ev) }),
		event.TypeOrderCancelled: notificationHandler(logger, event.TypeOrderCancelled,
			func(ctx context.Context, ev *event.OrderCancelledEvent) { svc.NotifyOrderCancelled(ctx, ev) }),
		event.TypeOrderShipped: notificationHandler(logger, event.TypeOrderShipped,
			func(ctx context.Context, ev *event.OrderShippedEvent) { svc.NotifyOrderShipped(ctx, ev) }),
		event.TypeOrderDelivered: notificationHandler(logger, event.TypeOrderDelivered,
			func(ctx context.Context, ev *event.OrderDeliveredEvent) { svc.NotifyOrderDelivered(ctx, ev) }),
		event.TypePaymentCompleted: notificationHandler(logger, event.TypePaymentCompleted,
			func(ctx context.Context, ev *event.PaymentCompletedEvent) { svc.NotifyPaymentCompleted(ctx, ev) }),
		event.TypePaymentFailed: notificationHandler(logger, event.TypePaymentFailed,
			func(ctx context.Context, ev *event.PaymentFailedEvent) { svc.NotifyPaymentFailed(ctx, ev) }),
		event.TypeStockUpdated: notificationHandler(logger, event.TypeStockUpdated,
			func(ctx context.Context, ev *event.StockUpdatedEvent) { svc.NotifyStockUpdated(ctx, ev) }),
	}
}

func notificationHandler[E any](logger *zap.Logger, eventType string, notify func(ctx context.Context, ev *E)) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		var ev E
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			logger.Error("Failed to unmarshal notification event, skipping",
				zap.String("event_type", eventType),
				zap.String("message_id", msg.ID),
				zap.Error(err))
			return nil
		}
		notify(ctx, &ev)
		return nil
	}
}
