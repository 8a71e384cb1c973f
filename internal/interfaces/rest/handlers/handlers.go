// Package handlers serves the gateway's HTTP routes.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/application/services"
	"github.com/go-playground/validator"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	checkoutService *services.CheckoutService
	statusService   *services.StatusService
	returnService   *services.ReturnService
	reconciler      *services.Reconciler
	checks          map[string]Pinger
	validate        *validator.Validate
	logger          *slog.Logger
}

func NewHandlers(
	checkoutService *services.CheckoutService,
	statusService *services.StatusService,
	returnService *services.ReturnService,
	reconciler *services.Reconciler,
	checks map[string]Pinger,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkoutService: checkoutService,
		statusService:   statusService,
		returnService:   returnService,
		reconciler:      reconciler,
		checks:          checks,
		validate:        validator.New(),
		logger:          logger,
	}
}

// Register mounts the public routes. admin wraps the operator routes.
func (h *Handlers) Register(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /checkout", h.Checkout)
	mux.HandleFunc("GET /orders/{order_id}/payment-status", h.PaymentStatus)
	mux.HandleFunc("GET /paytoday/return", h.PayTodayReturn)
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("POST /admin/orders/{order_id}/check", admin(http.HandlerFunc(h.CheckOrder)))
}
