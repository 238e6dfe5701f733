package stock_repo

import (
	"context"
	"errors"

	"ecommerce/internal/domain"
)

var ErrStockEntryNotFound = errors.New("stock entry not found")

// StockRepository owns the per-product stock rows. Every mutation is a
// single local transaction that also records the StockUpdated outbox rows,
// so a stock change and its event commit or roll back together.
type StockRepository interface {
	GetStockEntry(ctx context.Context, productID int64) (*domain.StockEntry, error)
	// DecreaseStock subtracts quantities for every item, all or nothing.
	// If any line is short it returns *domain.InsufficientStockError and no
	// row is left modified.
	DecreaseStock(ctx context.Context, items []domain.StockChangeRequest, msgs OutboxMessageFactory) ([]domain.StockChange, error)
	// IncreaseStock adds quantities, creating missing entries with zero
	// stock first.
	IncreaseStock(ctx context.Context, items []domain.StockChangeRequest, msgs OutboxMessageFactory) ([]domain.StockChange, error)
}

// OutboxMessageFactory turns a committed stock change into the outbox row
// published for it. The repository calls it inside the owning transaction.
type OutboxMessageFactory func(change domain.StockChange) (*domain.OutboxMessage, error)
