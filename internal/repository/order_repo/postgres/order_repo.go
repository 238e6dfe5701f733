package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/order_repo"
)

type pgOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderRepository(db *sql.DB, l *zap.Logger) order_repo.OrderRepository {
	return &pgOrderRepository{db: db, logger: l}
}

func (r *pgOrderRepository) CreateOrderAndOutboxMessage(ctx context.Context, order *domain.Order, msg *domain.OutboxMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for order creation", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	orderQuery := `INSERT INTO orders (id, client_id, status, payment_type, total, shipping_address, billing_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(ctx, orderQuery,
		order.ID, order.ClientID, order.Status, order.PaymentType, order.Total,
		order.ShippingAddress, order.BillingAddress, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("tx failed to create order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, position, product_id, quantity, unit_price) VALUES ($1, $2, $3, $4, $5)`
	for i, item := range order.Items {
		if _, err = tx.ExecContext(ctx, itemQuery, order.ID, i, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			return fmt.Errorf("tx failed to create order item: %w", err)
		}
	}

	if err = insertOutboxMessageTx(ctx, tx, msg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("Failed to commit order creation transaction", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.logger.Debug("Order and outbox message created", zap.String("order_id", order.ID))
	return nil
}

const orderColumns = `id, client_id, status, payment_type, total, shipping_address, billing_address,
	payment_transaction_id, payment_gateway, tracking_number, carrier, received_by, cancellation_reason,
	created_at, updated_at, paid_at, shipped_at, delivered_at, cancelled_at`

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		transactionID, gateway, tracking, carrier, receivedBy, cancelReason sql.NullString
		paidAt, shippedAt, deliveredAt, cancelledAt                         sql.NullTime
	)
	err := scan(
		&order.ID, &order.ClientID, &order.Status, &order.PaymentType, &order.Total,
		&order.ShippingAddress, &order.BillingAddress,
		&transactionID, &gateway, &tracking, &carrier, &receivedBy, &cancelReason,
		&order.CreatedAt, &order.UpdatedAt, &paidAt, &shippedAt, &deliveredAt, &cancelledAt)
	if err != nil {
		return nil, err
	}
	order.PaymentTransactionID = transactionID.String
	order.PaymentGateway = gateway.String
	order.TrackingNumber = tracking.String
	order.Carrier = carrier.String
	order.ReceivedBy = receivedBy.String
	order.CancellationReason = cancelReason.String
	order.PaidAt = nullTimePtr(paidAt)
	order.ShippedAt = nullTimePtr(shippedAt)
	order.DeliveredAt = nullTimePtr(deliveredAt)
	order.CancelledAt = nullTimePtr(cancelledAt)
	return order, nil
}

func (r *pgOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, order_repo.ErrOrderNotFound
		}
		r.logger.Error("Failed to get order by ID", zap.String("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}

	if order.Items, err = r.getOrderItems(ctx, id); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrdersByClientID loads a client's history in two round trips: one for
// the order rows, one for every order's items at once.
func (r *pgOrderRepository) GetOrdersByClientID(ctx context.Context, clientID int64) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE client_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, clientID)
	if err != nil {
		r.logger.Error("Failed to get orders for client", zap.Int64("client_id", clientID), zap.Error(err))
		return nil, fmt.Errorf("failed to get orders for client %d: %w", clientID, err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	byID := make(map[string]*domain.Order)
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		byID[order.ID] = order
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	itemQuery := `SELECT order_id, product_id, quantity, unit_price FROM order_items
		WHERE order_id = ANY($1) ORDER BY order_id, position ASC`
	itemRows, err := r.db.QueryContext(ctx, itemQuery, pq.Array(ids))
	if err != nil {
		r.logger.Error("Failed to get order items for client", zap.Int64("client_id", clientID), zap.Error(err))
		return nil, fmt.Errorf("failed to get order items for client %d: %w", clientID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		if order, ok := byID[orderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return orders, nil
}

func (r *pgOrderRepository) UpdateOrderAndOutboxMessage(ctx context.Context, order *domain.Order, previousStatus domain.OrderStatus, msg *domain.OutboxMessage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for order update", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Compare-and-set on the status the caller loaded. A concurrent handler
	// that won the race leaves zero rows here instead of being overwritten.
	query := `UPDATE orders SET status = $2, payment_transaction_id = $3, payment_gateway = $4,
		tracking_number = $5, carrier = $6, received_by = $7, cancellation_reason = $8,
		updated_at = $9, paid_at = $10, shipped_at = $11, delivered_at = $12, cancelled_at = $13
		WHERE id = $1 AND status = $14`
	res, err := tx.ExecContext(ctx, query,
		order.ID, order.Status,
		nullString(order.PaymentTransactionID), nullString(order.PaymentGateway),
		nullString(order.TrackingNumber), nullString(order.Carrier),
		nullString(order.ReceivedBy), nullString(order.CancellationReason),
		order.UpdatedAt, order.PaidAt, order.ShippedAt, order.DeliveredAt, order.CancelledAt,
		previousStatus)
	if err != nil {
		return fmt.Errorf("tx failed to update order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err = tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, order.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			err = order_repo.ErrOrderNotFound
			return err
		}
		r.logger.Warn("Order status changed concurrently, update rejected",
			zap.String("order_id", order.ID),
			zap.String("expected_status", string(previousStatus)))
		err = order_repo.ErrStaleOrder
		return err
	}

	if msg != nil {
		if err = insertOutboxMessageTx(ctx, tx, msg); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("Failed to commit order update transaction", zap.String("order_id", order.ID), zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.logger.Debug("Order updated", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
	return nil
}

func (r *pgOrderRepository) getOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	query := `SELECT product_id, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY position ASC`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get order items", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func insertOutboxMessageTx(ctx context.Context, tx *sql.Tx, msg *domain.OutboxMessage) error {
	query := `INSERT INTO outbox_messages (id, aggregate_id, message_type, topic, correlation_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query,
		msg.ID, msg.AggregateID, msg.MessageType, msg.Topic, msg.CorrelationID,
		msg.Payload, msg.Status, msg.CreatedAt); err != nil {
		return fmt.Errorf("tx failed to create outbox message: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if t.Valid {
		return &t.Time
	}
	return nil
}
