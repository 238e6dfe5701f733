package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"ecommerce/internal/app/inventory"
	"ecommerce/internal/domain"
	"ecommerce/internal/domain/event"
	"ecommerce/internal/messaging"
)

// OrderCancelledStockHandler releases the cancelled order's stock back to
// the ledger.
func OrderCancelledStockHandler(inventoryService inventory.InventoryService, logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		var ev event.OrderCancelledEvent
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			logger.Error("Failed to unmarshal OrderCancelledEvent",
				zap.String("message_id", msg.ID),
				zap.ByteString("body", msg.Body),
				zap.Error(err))
			return fmt.Errorf("failed to unmarshal order cancelled event: %w", err)
		}
		if len(ev.Items) == 0 {
			logger.Warn("Order cancelled event without items, nothing to release",
				zap.String("order_id", ev.OrderID))
			return nil
		}

		items := make([]domain.StockChangeRequest, len(ev.Items))
		for i, item := range ev.Items {
			items[i] = domain.StockChangeRequest{ProductID: item.ProductID, Quantity: item.Quantity}
		}

		logger.Info("Releasing stock for cancelled order",
			zap.String("order_id", ev.OrderID),
			zap.Int("item_count", len(items)),
			zap.String("correlation_id", msg.CorrelationID))

		if _, err := inventoryService.Increase(ctx, items); err != nil {
			return fmt.Errorf("failed to release stock for order %s: %w", ev.OrderID, err)
		}
		return nil
	}
}
