package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/DanielPopoola/paytoday-gateway/internal/api"
	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/application/services"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/DanielPopoola/paytoday-gateway/internal/interfaces/rest"
	"github.com/shopspring/decimal"
)

const maxCheckoutBody = 1 << 16

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req api.CheckoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckoutBody))
	if err := dec.Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(fmt.Errorf("amount: %w", err)), h.logger)
		return
	}

	result, err := h.checkoutService.ProcessPayment(r.Context(), services.CheckoutCommand{
		OrderID:       req.OrderID,
		Amount:        amount,
		InvoiceNumber: req.InvoiceNumber,
		ReturnURL:     req.ReturnURL,
		Customer: domain.Customer{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
		},
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteData(w, http.StatusCreated, api.CheckoutResult{
		OrderID:             result.OrderID,
		RedirectURL:         result.RedirectURL,
		AccessKey:           result.AccessKey,
		TokenProvenance:     string(result.TokenProvenance),
		PollIntervalSeconds: result.PollIntervalSeconds,
		PollTimeoutSeconds:  result.PollTimeoutSeconds,
	})
}
