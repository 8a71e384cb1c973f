package handlers

import (
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/DanielPopoola/paytoday-gateway/internal/interfaces/rest"
)

// CheckOrder runs one reconciliation pass on operator request.
func (h *Handlers) CheckOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	decision, err := h.reconciler.Check(r.Context(), orderID, domain.DriverManual)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteData(w, http.StatusOK, api.CheckResult{
		OrderID:           decision.OrderID,
		Outcome:           string(decision.Outcome),
		OrderStatus:       string(decision.OrderStatus),
		TransactionStatus: string(decision.Status),
		RawStatus:         decision.RawStatus,
		Applied:           decision.Applied,
	})
}
