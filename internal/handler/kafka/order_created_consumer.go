package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"ecommerce/internal/app/cart"
	"ecommerce/internal/domain/event"
	"ecommerce/internal/messaging"
)

// OrderCreatedCartHandler retires the cart that produced a new order.
func OrderCreatedCartHandler(cartService cart.CartService, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		var ev event.OrderCreatedEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			logger.Error("Failed to unmarshal OrderCreatedEvent",
				zap.String("message_id", msg.ID),
				zap.ByteString("body", msg.Body),
				zap.Error(err))
			return fmt.Errorf("failed to unmarshal order created event: %w", err)
		}

		logger.Info("Processing OrderCreatedEvent for cart reconciliation",
			zap.String("order_id", ev.OrderID),
			zap.Int64("client_id", ev.ClientID),
			zap.String("correlation_id", msg.CorrelationID))

		if err := cartService.ReconcileOrderCreated(ctx, ev.OrderID, ev.ClientID); err != nil {
			return fmt.Errorf("failed to reconcile cart for order %s: %w", ev.OrderID, err)
		}
		return nil
	}
}
