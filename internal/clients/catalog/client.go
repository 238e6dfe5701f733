// Package catalog is the HTTP client the order service uses to reach the
// inventory ledger. Only the boundary contract matters here: atomic stock
// increase/decrease by product id with an insufficient-stock signal.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ecommerce/internal/correlation"
	"ecommerce/internal/domain"
)

// StockAction mirrors the inventory API's update actions.
type StockAction string

const (
	StockActionSubtract StockAction = "SUBTRACT"
	StockActionAdd      StockAction = "ADD"
)

type StockUpdateItem struct {
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Action    StockAction `json:"action"`
}

type stockUpdateRequest struct {
	Items []StockUpdateItem `json:"items"`
}

type stockErrorResponse struct {
	Error     string `json:"error"`
	ProductID int64  `json:"product_id,omitempty"`
}

// StockClient is what the order service depends on.
type StockClient interface {
	DecreaseStock(ctx context.Context, items []domain.StockChangeRequest) error
	IncreaseStock(ctx context.Context, items []domain.StockChangeRequest) error
}

type httpStockClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewStockClient(baseURL string, timeout time.Duration, l *zap.Logger) StockClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpStockClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     l,
	}
}

func (c *httpStockClient) DecreaseStock(ctx context.Context, items []domain.StockChangeRequest) error {
	return c.updateStock(ctx, items, StockActionSubtract)
}

func (c *httpStockClient) IncreaseStock(ctx context.Context, items []domain.StockChangeRequest) error {
	return c.updateStock(ctx, items, StockActionAdd)
}

func (c *httpStockClient) updateStock(ctx context.Context, items []domain.StockChangeRequest, action StockAction) error {
	req := stockUpdateRequest{Items: make([]StockUpdateItem, 0, len(items))}
	for _, item := range items {
		req.Items = append(req.Items, StockUpdateItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Action:    action,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal stock update request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/stocks", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build stock update request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if id := correlation.FromContext(ctx); id != "" {
		httpReq.Header.Set(correlation.Header, id)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Stock update request failed", zap.String("action", string(action)), zap.Error(err))
		return fmt.Errorf("stock update request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		var errResp stockErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.ProductID != 0 {
			return &domain.InsufficientStockError{ProductID: errResp.ProductID}
		}
		return domain.ErrInsufficientStock
	default:
		c.logger.Error("Unexpected stock update response",
			zap.String("action", string(action)),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("stock update returned status %d", resp.StatusCode)
	}
}
