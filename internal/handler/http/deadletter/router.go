package deadletter

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	app "ecommerce/internal/app/deadletter"
)

func RegisterRoutes(r chi.Router, s app.DeadLetterService, l *zap.Logger) {
	handler := NewDeadLetterHandler(s, l.With(zap.String("component", "DeadLetterHTTPHandler")))

	r.Route("/dead-letters", func(r chi.Router) {
		r.Get("/", handler.ListMessages)
		r.Get("/{id}", handler.GetMessage)
		r.Post("/{id}/reprocess", handler.ReprocessMessage)
		r.Post("/{id}/discard", handler.DiscardMessage)
	})
}
