package order_repo

import (
	"context"
	"errors"

	"ecommerce/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrStaleOrder means the order's status changed between load and update;
	// the caller saw an outdated snapshot and must reload before retrying.
	ErrStaleOrder = errors.New("order was modified concurrently")
)

type OrderRepository interface {
	// CreateOrderAndOutboxMessage persists the order, its items and the
	// OrderCreated outbox row in one transaction.
	CreateOrderAndOutboxMessage(ctx context.Context, order *domain.Order, msg *domain.OutboxMessage) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrdersByClientID(ctx context.Context, clientID int64) ([]*domain.Order, error)
	// UpdateOrderAndOutboxMessage persists a status change together with the
	// lifecycle event it produced. The write is a compare-and-set on
	// previousStatus so two concurrent transitions cannot both win; the loser
	// gets ErrStaleOrder. msg may be nil for silent updates.
	UpdateOrderAndOutboxMessage(ctx context.Context, order *domain.Order, previousStatus domain.OrderStatus, msg *domain.OutboxMessage) error
}
