package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "ecommerce/internal/app/cart"
	"ecommerce/internal/domain"
)

type CartHandler struct {
	service app.CartService
	logger  *zap.Logger
}

func NewCartHandler(s app.CartService, l *zap.Logger) *CartHandler {
	return &CartHandler{service: s, logger: l}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseClientID(r)
	if err != nil {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}

	cart, err := h.service.GetCart(r.Context(), clientID)
	if err != nil {
		if errors.Is(err, app.ErrCartNotFound) {
			http.Error(w, "Cart not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting cart", zap.Int64("client_id", clientID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseClientID(r)
	if err != nil {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}

	var item domain.CartItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cart, err := h.service.AddItem(r.Context(), clientID, item)
	if err != nil {
		h.logger.Warn("Error adding cart item", zap.Int64("client_id", clientID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	clientID, err := parseClientID(r)
	if err != nil {
		http.Error(w, "Invalid client id", http.StatusBadRequest)
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product id", http.StatusBadRequest)
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), clientID, productID)
	if err != nil {
		if errors.Is(err, app.ErrCartNotFound) {
			http.Error(w, "Cart not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error removing cart item",
			zap.Int64("client_id", clientID),
			zap.Int64("product_id", productID),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cart)
}

func parseClientID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
}
