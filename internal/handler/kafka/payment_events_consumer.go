// Package kafka contains the event handlers each service plugs into the
// messaging consumer pipeline.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"ecommerce/internal/app/order"
	"ecommerce/internal/domain/event"
	"ecommerce/internal/messaging"
)

// PaymentCompletedHandler applies payment-completed facts to the order state
// machine.
func PaymentCompletedHandler(orderService order.OrderService, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		var ev event.PaymentCompletedEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			logger.Error("Failed to unmarshal PaymentCompletedEvent",
				zap.String("message_id", msg.ID),
				zap.ByteString("body", msg.Body),
				zap.Error(err))
			return fmt.Errorf("failed to unmarshal payment completed event: %w", err)
		}

		logger.Info("Processing PaymentCompletedEvent",
			zap.String("order_id", ev.OrderID),
			zap.String("transaction_id", ev.TransactionID),
			zap.String("correlation_id", msg.CorrelationID))

		if err := orderService.ApplyPaymentCompleted(ctx, &ev); err != nil {
			return fmt.Errorf("failed to apply payment completed for order %s: %w", ev.OrderID, err)
		}
		return nil
	}
}

// PaymentFailedHandler applies payment-failed facts to the order state
// machine.
func PaymentFailedHandler(orderService order.OrderService, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		var ev event.PaymentFailedEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			logger.Error("Failed to unmarshal PaymentFailedEvent",
				zap.String("message_id", msg.ID),
				zap.ByteString("body", msg.Body),
				zap.Error(err))
			return fmt.Errorf("failed to unmarshal payment failed event: %w", err)
		}

		logger.Info("Processing PaymentFailedEvent",
			zap.String("order_id", ev.OrderID),
			zap.String("error_code", ev.ErrorCode),
			zap.String("correlation_id", msg.CorrelationID))

		if err := orderService.ApplyPaymentFailed(ctx, &ev); err != nil {
			return fmt.Errorf("failed to apply payment failed for order %s: %w", ev.OrderID, err)
		}
		return nil
	}
}
