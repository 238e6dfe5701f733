package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/stock_repo"
)

type pgStockRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewStockRepository(db *sql.DB, l *zap.Logger) stock_repo.StockRepository {
	return &pgStockRepository{db: db, logger: l}
}

func (r *pgStockRepository) GetStockEntry(ctx context.Context, productID int64) (*domain.StockEntry, error) {
	entry := &domain.StockEntry{}
	query := `SELECT product_id, stock, min_stock, max_stock, updated_at FROM stocks WHERE product_id = $1`
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&entry.ProductID, &entry.Stock, &entry.MinStock, &entry.MaxStock, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, stock_repo.ErrStockEntryNotFound
		}
		r.logger.Error("Failed to get stock entry", zap.Int64("product_id", productID), zap.Error(err))
		return nil, fmt.Errorf("failed to get stock entry %d: %w", productID, err)
	}
	return entry, nil
}

// DecreaseStock runs all lines in one transaction. Each UPDATE is guarded by
// stock >= quantity, so oversell is rejected at the row and the whole batch
// rolls back without partial decrements.
func (r *pgStockRepository) DecreaseStock(ctx context.Context, items []domain.StockChangeRequest, msgs stock_repo.OutboxMessageFactory) ([]domain.StockChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for stock decrease", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	changes := make([]domain.StockChange, 0, len(items))
	for _, item := range items {
		var current int
		query := `UPDATE stocks SET stock = stock - $2, updated_at = NOW()
			WHERE product_id = $1 AND stock >= $2
			RETURNING stock`
		scanErr := tx.QueryRowContext(ctx, query, item.ProductID, item.Quantity).Scan(&current)
		if scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				// Missing entry and short stock are the same business
				// outcome for the caller.
				err = &domain.InsufficientStockError{ProductID: item.ProductID}
				return nil, err
			}
			err = fmt.Errorf("tx failed to decrease stock for product %d: %w", item.ProductID, scanErr)
			return nil, err
		}
		changes = append(changes, domain.StockChange{
			ProductID:     item.ProductID,
			PreviousStock: current + item.Quantity,
			CurrentStock:  current,
		})
	}

	if err = r.insertOutboxMessagesTx(ctx, tx, changes, msgs); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("Failed to commit stock decrease transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return changes, nil
}

// IncreaseStock creates missing entries lazily with zero stock, then adds.
func (r *pgStockRepository) IncreaseStock(ctx context.Context, items []domain.StockChangeRequest, msgs stock_repo.OutboxMessageFactory) ([]domain.StockChange, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction for stock increase", zap.Error(err))
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	changes := make([]domain.StockChange, 0, len(items))
	for _, item := range items {
		var current int
		query := `INSERT INTO stocks (product_id, stock, min_stock, max_stock, updated_at)
			VALUES ($1, $2, 0, 100, NOW())
			ON CONFLICT (product_id) DO UPDATE SET stock = stocks.stock + $2, updated_at = NOW()
			RETURNING stock`
		scanErr := tx.QueryRowContext(ctx, query, item.ProductID, item.Quantity).Scan(&current)
		if scanErr != nil {
			err = fmt.Errorf("tx failed to increase stock for product %d: %w", item.ProductID, scanErr)
			return nil, err
		}
		changes = append(changes, domain.StockChange{
			ProductID:     item.ProductID,
			PreviousStock: current - item.Quantity,
			CurrentStock:  current,
		})
	}

	if err = r.insertOutboxMessagesTx(ctx, tx, changes, msgs); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("Failed to commit stock increase transaction", zap.Error(err))
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return changes, nil
}

func (r *pgStockRepository) insertOutboxMessagesTx(ctx context.Context, tx *sql.Tx, changes []domain.StockChange, msgs stock_repo.OutboxMessageFactory) error {
	if msgs == nil {
		return nil
	}
	query := `INSERT INTO outbox_messages (id, aggregate_id, message_type, topic, correlation_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, change := range changes {
		msg, err := msgs(change)
		if err != nil {
			return fmt.Errorf("failed to build outbox message for product %d: %w", change.ProductID, err)
		}
		if _, err := tx.ExecContext(ctx, query,
			msg.ID, msg.AggregateID, msg.MessageType, msg.Topic, msg.CorrelationID,
			msg.Payload, msg.Status, msg.CreatedAt); err != nil {
			return fmt.Errorf("tx failed to create outbox message: %w", err)
		}
	}
	return nil
}
