package order

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "ecommerce/internal/app/order"
)

func RegisterRoutes(r chi.Router, s app.OrderService, l *zap.Logger) {
	handler := NewOrderHandler(s, l.With(zap.String("component", "OrderHTTPHandler")))

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/{orderID}", handler.GetOrder)
		r.Get("/client/{clientID}", handler.GetOrdersByClientID)
		r.Post("/{orderID}/ship", handler.ShipOrder)
		r.Post("/{orderID}/deliver", handler.DeliverOrder)
		r.Post("/{orderID}/cancel", handler.CancelOrder)
	})
}
