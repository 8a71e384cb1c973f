package handlers

import (
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/interfaces/rest"
)

// PaymentStatus is the client short-poll endpoint.
func (h *Handlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}
	key, err := queryParam(r, "key", true)
	if err != nil || key == "" {
		rest.WriteError(w, application.NewForbiddenError(), h.logger)
		return
	}

	status, err := h.statusService.PaymentStatus(r.Context(), orderID, key)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	rest.WriteData(w, http.StatusOK, api.PaymentStatus{
		Completed:         status.Completed,
		Failed:            status.Failed,
		Pending:           status.Pending,
		RedirectURL:       status.RedirectURL,
		RawStatus:         status.RawStatus,
		RetryAfterSeconds: status.RetryAfterSeconds,
		PollUntil:         status.PollUntil,
	})
}
