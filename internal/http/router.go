package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxRequestBodySize = 1 << 20

// NewRouter mounts the cart API under /api/v1.
func NewRouter(h *CartHandler, log *zap.Logger, timeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{product_id}", h.UpdateAmount)
			r.Delete("/items/{product_id}", h.RemoveItem)
		})
	})

	return r
}
