package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "ecommerce/internal/app/inventory"
	"ecommerce/internal/domain"
	"ecommerce/internal/repository/stock_repo"
)

const (
	actionSubtract = "SUBTRACT"
	actionAdd      = "ADD"
)

type stockUpdateItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Action    string `json:"action"`
}

type stockUpdateRequest struct {
	Items []stockUpdateItem `json:"items"`
}

type stockChangeResponse struct {
	ProductID     int64 `json:"product_id"`
	PreviousStock int   `json:"previous_stock"`
	CurrentStock  int   `json:"current_stock"`
}

type StockHandler struct {
	service app.InventoryService
	logger  *zap.Logger
}

func NewStockHandler(s app.InventoryService, l *zap.Logger) *StockHandler {
	return &StockHandler{service: s, logger: l}
}

func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product id", http.StatusBadRequest)
		return
	}

	entry, err := h.service.GetStock(r.Context(), productID)
	if err != nil {
		if errors.Is(err, stock_repo.ErrStockEntryNotFound) {
			http.Error(w, "Stock entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting stock entry", zap.Int64("product_id", productID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// UpdateStock applies a batch of SUBTRACT or ADD lines. A batch mixes
// actions freely; each action group is applied atomically by the service.
func (h *StockHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req stockUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		http.Error(w, "At least one item is required", http.StatusBadRequest)
		return
	}

	subtract := make([]domain.StockChangeRequest, 0, len(req.Items))
	add := make([]domain.StockChangeRequest, 0)
	for _, item := range req.Items {
		change := domain.StockChangeRequest{ProductID: item.ProductID, Quantity: item.Quantity}
		switch item.Action {
		case actionSubtract:
			subtract = append(subtract, change)
		case actionAdd:
			add = append(add, change)
		default:
			http.Error(w, "Unknown stock action: "+item.Action, http.StatusBadRequest)
			return
		}
	}

	changes := make([]domain.StockChange, 0, len(req.Items))
	if len(subtract) > 0 {
		applied, err := h.service.Decrease(r.Context(), subtract)
		if err != nil {
			h.writeUpdateError(w, err)
			return
		}
		changes = append(changes, applied...)
	}
	if len(add) > 0 {
		applied, err := h.service.Increase(r.Context(), add)
		if err != nil {
			h.writeUpdateError(w, err)
			return
		}
		changes = append(changes, applied...)
	}

	res := make([]stockChangeResponse, 0, len(changes))
	for _, change := range changes {
		res = append(res, stockChangeResponse{
			ProductID:     change.ProductID,
			PreviousStock: change.PreviousStock,
			CurrentStock:  change.CurrentStock,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *StockHandler) writeUpdateError(w http.ResponseWriter, err error) {
	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		h.logger.Warn("Stock update rejected", zap.Int64("product_id", insufficient.ProductID), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{
			"error":      err.Error(),
			"product_id": insufficient.ProductID,
		})
		return
	}
	if errors.Is(err, domain.ErrInsufficientStock) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	h.logger.Error("Error updating stock", zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
