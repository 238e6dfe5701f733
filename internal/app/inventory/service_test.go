package inventory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecommerce/internal/correlation"
	"ecommerce/internal/domain"
	"ecommerce/internal/domain/event"
	"ecommerce/internal/repository/stock_repo"
)

type fakeStockRepo struct {
	stocks map[int64]int
	outbox []*domain.OutboxMessage
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{stocks: make(map[int64]int)}
}

func (r *fakeStockRepo) GetStockEntry(_ context.Context, productID int64) (*domain.StockEntry, error) {
	stock, ok := r.stocks[productID]
	if !ok {
		return nil, stock_repo.ErrStockEntryNotFound
	}
	return &domain.StockEntry{ProductID: productID, Stock: stock, MaxStock: 100}, nil
}

func (r *fakeStockRepo) DecreaseStock(_ context.Context, items []domain.StockChangeRequest, msgs stock_repo.OutboxMessageFactory) ([]domain.StockChange, error) {
	for _, item := range items {
		if r.stocks[item.ProductID] < item.Quantity {
			return nil, &domain.InsufficientStockError{ProductID: item.ProductID}
		}
	}
	return r.apply(items, -1, msgs)
}

func (r *fakeStockRepo) IncreaseStock(_ context.Context, items []domain.StockChangeRequest, msgs stock_repo.OutboxMessageFactory) ([]domain.StockChange, error) {
	return r.apply(items, 1, msgs)
}

func (r *fakeStockRepo) apply(items []domain.StockChangeRequest, sign int, msgs stock_repo.OutboxMessageFactory) ([]domain.StockChange, error) {
	changes := make([]domain.StockChange, 0, len(items))
	for _, item := range items {
		previous := r.stocks[item.ProductID]
		r.stocks[item.ProductID] = previous + sign*item.Quantity
		change := domain.StockChange{
			ProductID:     item.ProductID,
			PreviousStock: previous,
			CurrentStock:  r.stocks[item.ProductID],
		}
		changes = append(changes, change)
		if msgs != nil {
			msg, err := msgs(change)
			if err != nil {
				return nil, err
			}
			r.outbox = append(r.outbox, msg)
		}
	}
	return changes, nil
}

func TestDecreaseRecordsStockUpdatedPerItem(t *testing.T) {
	repo := newFakeStockRepo()
	repo.stocks[1] = 10
	svc := NewInventoryService(repo, zap.NewNop())

	ctx := correlation.WithID(context.Background(), "corr-1")
	changes, err := svc.Decrease(ctx, []domain.StockChangeRequest{{ProductID: 1, Quantity: 3}})
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, 10, changes[0].PreviousStock)
	assert.Equal(t, 7, changes[0].CurrentStock)

	require.Len(t, repo.outbox, 1)
	msg := repo.outbox[0]
	assert.Equal(t, event.TypeStockUpdated, msg.MessageType)
	assert.Equal(t, "stock-updated", msg.Topic)
	assert.Equal(t, "corr-1", msg.CorrelationID)

	var payload event.StockUpdatedEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, int64(1), payload.ProductID)
	assert.Equal(t, 10, payload.PreviousStock)
	assert.Equal(t, 7, payload.CurrentStock)
	assert.Equal(t, "corr-1", payload.CorrelationID)
}

func TestDecreaseValidatesQuantities(t *testing.T) {
	svc := NewInventoryService(newFakeStockRepo(), zap.NewNop())

	_, err := svc.Decrease(context.Background(), []domain.StockChangeRequest{{ProductID: 1, Quantity: 0}})
	assert.Error(t, err)

	_, err = svc.Decrease(context.Background(), nil)
	assert.Error(t, err)
}

func TestDecreaseInsufficientSurfacesProductID(t *testing.T) {
	repo := newFakeStockRepo()
	repo.stocks[1] = 2
	svc := NewInventoryService(repo, zap.NewNop())

	_, err := svc.Decrease(context.Background(), []domain.StockChangeRequest{{ProductID: 1, Quantity: 5}})

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.ProductID)
}

func TestIncreaseLazilyCreatesEntry(t *testing.T) {
	repo := newFakeStockRepo()
	svc := NewInventoryService(repo, zap.NewNop())

	changes, err := svc.Increase(context.Background(), []domain.StockChangeRequest{{ProductID: 9, Quantity: 4}})
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, 0, changes[0].PreviousStock)
	assert.Equal(t, 4, changes[0].CurrentStock)
	assert.True(t, changes[0].IsBackInStock())
}
