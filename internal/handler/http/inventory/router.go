package inventory

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "ecommerce/internal/app/inventory"
)

func RegisterRoutes(r chi.Router, s app.InventoryService, l *zap.Logger) {
	handler := NewStockHandler(s, l.With(zap.String("component", "StockHTTPHandler")))

	r.Route("/stocks", func(r chi.Router) {
		r.Put("/", handler.UpdateStock)
		r.Get("/{productID}", handler.GetStock)
	})
}
