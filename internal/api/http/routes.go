package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new HTTP router with configured routes, middleware,
// and handlers: borrow task routes, book status, health check, and the
// Prometheus metrics endpoint.
func NewRouter(borrows BorrowServiceI, statuses StatusReaderI, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	handler := NewBorrowHandler(borrows, statuses, logger)

	r.Route("/borrows", func(r chi.Router) {
		r.Post("/", handler.CreateBorrow)
		r.Get("/{taskID}", handler.GetBorrow)
		r.Delete("/{taskID}", handler.CancelBorrow)
	})

	r.Get("/books/{bookID}/status", handler.GetBookStatus)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
