package cart

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "ecommerce/internal/app/cart"
)

func RegisterRoutes(r chi.Router, s app.CartService, l *zap.Logger) {
	handler := NewCartHandler(s, l.With(zap.String("component", "CartHTTPHandler")))

	r.Route("/carts/{clientID}", func(r chi.Router) {
		r.Get("/", handler.GetCart)
		r.Post("/items", handler.AddItem)
		r.Delete("/items/{productID}", handler.RemoveItem)
	})
}
