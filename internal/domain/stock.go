package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientStock is returned when a decrease would drive stock below
// zero or the product has no stock entry at all.
var ErrInsufficientStock = errors.New("insufficient stock")

// InsufficientStockError carries the offending product so callers can report
// which line of a multi-item command failed.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// StockEntry tracks available stock for one product. Stock never goes
// negative; MaxStock must stay above MinStock. Entries are created lazily on
// the first increase and never deleted while the product exists.
type StockEntry struct {
	ProductID int64
	Stock     int
	MinStock  int
	MaxStock  int
	UpdatedAt time.Time
}

// StockChangeRequest is one line of an increase/decrease command.
type StockChangeRequest struct {
	ProductID int64
	Quantity  int
}

// StockChange reports the before/after of one atomic ledger operation, so
// consumers can derive "back in stock" and "out of stock" transitions
// without re-querying.
type StockChange struct {
	ProductID     int64
	PreviousStock int
	CurrentStock  int
}

func (c StockChange) IsBackInStock() bool {
	return c.PreviousStock <= 0 && c.CurrentStock > 0
}

func (c StockChange) IsOutOfStock() bool {
	return c.CurrentStock <= 0
}
