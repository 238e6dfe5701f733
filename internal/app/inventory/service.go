package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ecommerce/internal/correlation"
	"ecommerce/internal/domain"
	"ecommerce/internal/domain/event"
	"ecommerce/internal/messaging"
	"ecommerce/internal/repository/stock_repo"
)

// InventoryService owns the stock ledger. Both operations run inside a
// single local transaction of the owning store; the StockUpdated events
// commit with the stock rows through the outbox.
type InventoryService interface {
	GetStock(ctx context.Context, productID int64) (*domain.StockEntry, error)
	// Decrease subtracts quantities with oversell protection: if any line
	// is short the whole call fails with *domain.InsufficientStockError and
	// no stock is left modified.
	Decrease(ctx context.Context, items []domain.StockChangeRequest) ([]domain.StockChange, error)
	// Increase adds quantities, lazily creating missing entries.
	Increase(ctx context.Context, items []domain.StockChangeRequest) ([]domain.StockChange, error)
}

type inventoryService struct {
	stockRepo stock_repo.StockRepository
	logger    *zap.Logger
}

func NewInventoryService(stockRepo stock_repo.StockRepository, logger *zap.Logger) InventoryService {
	return &inventoryService{stockRepo: stockRepo, logger: logger}
}

func (s *inventoryService) GetStock(ctx context.Context, productID int64) (*domain.StockEntry, error) {
	return s.stockRepo.GetStockEntry(ctx, productID)
}

func (s *inventoryService) Decrease(ctx context.Context, items []domain.StockChangeRequest) ([]domain.StockChange, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	changes, err := s.stockRepo.DecreaseStock(ctx, items, s.stockUpdatedMessage(ctx))
	if err != nil {
		return nil, err
	}
	for _, change := range changes {
		s.logger.Info("Stock decreased",
			zap.Int64("product_id", change.ProductID),
			zap.Int("previous_stock", change.PreviousStock),
			zap.Int("current_stock", change.CurrentStock))
	}
	return changes, nil
}

func (s *inventoryService) Increase(ctx context.Context, items []domain.StockChangeRequest) ([]domain.StockChange, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	changes, err := s.stockRepo.IncreaseStock(ctx, items, s.stockUpdatedMessage(ctx))
	if err != nil {
		return nil, err
	}
	for _, change := range changes {
		s.logger.Info("Stock increased",
			zap.Int64("product_id", change.ProductID),
			zap.Int("previous_stock", change.PreviousStock),
			zap.Int("current_stock", change.CurrentStock))
	}
	return changes, nil
}

func (s *inventoryService) stockUpdatedMessage(ctx context.Context) stock_repo.OutboxMessageFactory {
	correlationID := correlation.FromContext(ctx)
	return func(change domain.StockChange) (*domain.OutboxMessage, error) {
		payload := event.StockUpdatedEvent{
			Meta: event.Meta{
				EventID:       uuid.NewString(),
				CorrelationID: correlationID,
				OccurredAt:    time.Now().UTC(),
			},
			ProductID:     change.ProductID,
			PreviousStock: change.PreviousStock,
			CurrentStock:  change.CurrentStock,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stock updated payload: %w", err)
		}
		return &domain.OutboxMessage{
			ID:            uuid.NewString(),
			AggregateID:   fmt.Sprintf("%d", change.ProductID),
			MessageType:   event.TypeStockUpdated,
			Topic:         messaging.TopicName(event.TypeStockUpdated),
			CorrelationID: correlationID,
			Payload:       body,
			Status:        domain.OutboxStatusPending,
			CreatedAt:     time.Now().UTC(),
		}, nil
	}
}

func validateItems(items []domain.StockChangeRequest) error {
	if len(items) == 0 {
		return fmt.Errorf("stock change requires at least one item")
	}
	for _, item := range items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return fmt.Errorf("invalid stock change for product %d: quantity must be positive", item.ProductID)
		}
	}
	return nil
}
