package handlers

import (
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/application/services"
	"github.com/DanielPopoola/paytoday-gateway/internal/interfaces/rest"
)

// PayTodayReturn settles the order from the redirect parameters and sends the
// payer back to the storefront.
func (h *Handlers) PayTodayReturn(w http.ResponseWriter, r *http.Request) {
	cmd := services.ReturnCommand{}
	for name, dest := range map[string]*string{
		"invoice_number":   &cmd.InvoiceNumber,
		"status":           &cmd.Status,
		"reference":        &cmd.Reference,
		"reference_number": &cmd.ReferenceNumber,
	} {
		v, err := queryParam(r, name, false)
		if err != nil {
			h.logger.Debug("ignoring malformed return parameter", "name", name, "error", err)
			continue
		}
		*dest = v
	}

	result, err := h.returnService.HandleReturn(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}
