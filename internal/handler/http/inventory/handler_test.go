package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ecommerce/internal/domain"
	"ecommerce/internal/repository/stock_repo"
)

type fakeInventoryService struct {
	stocks      map[int64]*domain.StockEntry
	decreaseErr error
}

func (s *fakeInventoryService) GetStock(_ context.Context, productID int64) (*domain.StockEntry, error) {
	entry, ok := s.stocks[productID]
	if !ok {
		return nil, stock_repo.ErrStockEntryNotFound
	}
	return entry, nil
}

func (s *fakeInventoryService) Decrease(_ context.Context, items []domain.StockChangeRequest) ([]domain.StockChange, error) {
	if s.decreaseErr != nil {
		return nil, s.decreaseErr
	}
	changes := make([]domain.StockChange, len(items))
	for i, item := range items {
		changes[i] = domain.StockChange{ProductID: item.ProductID, PreviousStock: 10, CurrentStock: 10 - item.Quantity}
	}
	return changes, nil
}

func (s *fakeInventoryService) Increase(_ context.Context, items []domain.StockChangeRequest) ([]domain.StockChange, error) {
	changes := make([]domain.StockChange, len(items))
	for i, item := range items {
		changes[i] = domain.StockChange{ProductID: item.ProductID, PreviousStock: 0, CurrentStock: item.Quantity}
	}
	return changes, nil
}

func newTestRouter(svc *fakeInventoryService) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, svc, zap.NewNop())
	return r
}

func TestUpdateStockSubtract(t *testing.T) {
	router := newTestRouter(&fakeInventoryService{})

	body := `{"items":[{"product_id":1,"quantity":3,"action":"SUBTRACT"}]}`
	req := httptest.NewRequest(http.MethodPut, "/stocks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res, 1)
	assert.Equal(t, float64(10), res[0]["previous_stock"])
	assert.Equal(t, float64(7), res[0]["current_stock"])
}

func TestUpdateStockInsufficientReturns409WithProductID(t *testing.T) {
	router := newTestRouter(&fakeInventoryService{
		decreaseErr: &domain.InsufficientStockError{ProductID: 2},
	})

	body := `{"items":[{"product_id":2,"quantity":5,"action":"SUBTRACT"}]}`
	req := httptest.NewRequest(http.MethodPut, "/stocks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)

	// The order service's stock client parses this exact shape.
	var res struct {
		Error     string `json:"error"`
		ProductID int64  `json:"product_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(2), res.ProductID)
	assert.NotEmpty(t, res.Error)
}

func TestUpdateStockRejectsUnknownAction(t *testing.T) {
	router := newTestRouter(&fakeInventoryService{})

	body := `{"items":[{"product_id":1,"quantity":1,"action":"MULTIPLY"}]}`
	req := httptest.NewRequest(http.MethodPut, "/stocks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStock(t *testing.T) {
	router := newTestRouter(&fakeInventoryService{
		stocks: map[int64]*domain.StockEntry{7: {ProductID: 7, Stock: 3, MaxStock: 100}},
	})

	req := httptest.NewRequest(http.MethodGet, "/stocks/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/stocks/404", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStockRejectsEmptyBatch(t *testing.T) {
	router := newTestRouter(&fakeInventoryService{})

	req := httptest.NewRequest(http.MethodPut, "/stocks", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
