package rest

import (
	"net/http"

	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/middleware"
	"vinmarket-be/internal/payment/callback"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the public gateway endpoints and the authenticated API.
func NewRouter(h *Handler, cb *callback.Handler, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.AuthMiddleware(jwtSecret))
	r.Use(middleware.RateLimitMiddleware)

	r.Get("/healthz", h.Health)

	r.Route("/payments/gateway", func(r chi.Router) {
		r.Get("/callback", cb.Callback)
		r.Post("/callback", cb.Callback)

		for path, fn := range map[string]http.HandlerFunc{
			"/success": cb.Success,
			"/error":   cb.Error,
			"/cancel":  cb.Cancel,
		} {
			r.Get(path, fn)
			r.Post(path, fn)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/internal/metrics", h.Metrics)

		r.Get("/addresses", h.ListAddresses)
		r.Post("/addresses", h.CreateAddress)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddCartItem)
				r.Patch("/items/{wineId}", h.UpdateCartItem)
				r.Delete("/items/{wineId}", h.RemoveCartItem)
				r.Post("/checkout", h.Checkout)
			})

			r.Get("/{id}", h.GetOrder)
			r.Delete("/{id}", h.CancelOrder)
			r.Patch("/{id}/status", h.UpdateOrderStatus)
			r.Post("/{id}/payment", h.ProcessPayment)
		})
	})

	return r
}
