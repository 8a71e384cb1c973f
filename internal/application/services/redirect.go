package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
)

type ReturnCommand struct {
	InvoiceNumber   string
	Status          string
	Reference       string
	ReferenceNumber string
}

type ReturnResult struct {
	OrderID     int64
	RedirectURL string
	Decision    *Decision
}

type ReturnSettings struct {
	OrderReceivedURL func(orderID int64) string
	CheckoutURL      string
}

// ReturnService handles the payer's browser coming back from PayToday.
type ReturnService struct {
	reconciler *Reconciler
	settings   ReturnSettings
	logger     *slog.Logger
}

func NewReturnService(reconciler *Reconciler, settings ReturnSettings, logger *slog.Logger) *ReturnService {
	return &ReturnService{
		reconciler: reconciler,
		settings:   settings,
		logger:     logger,
	}
}

func (s *ReturnService) HandleReturn(ctx context.Context, cmd ReturnCommand) (*ReturnResult, error) {
	orderID := parseInvoiceNumber(cmd.InvoiceNumber)
	if orderID <= 0 {
		return nil, application.NewMissingInvoiceError()
	}

	decision, err := s.reconciler.ApplyRedirect(ctx, orderID, ReturnParams{
		Status:          cmd.Status,
		Reference:       cmd.Reference,
		ReferenceNumber: cmd.ReferenceNumber,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payer returned from PayToday",
		"order_id", orderID,
		"status", cmd.Status,
		"outcome", decision.Outcome,
	)

	// The payer lands on order-received only when the order really is paid,
	// whatever the browser claimed.
	result := &ReturnResult{OrderID: orderID, Decision: decision}
	if decision.OrderStatus == domain.OrderCompleted {
		result.RedirectURL = s.settings.OrderReceivedURL(orderID)
	} else {
		result.RedirectURL = s.settings.CheckoutURL
	}
	return result, nil
}

// parseInvoiceNumber reads the invoice number as an order id. Anything that is
// not a whole number reads as zero.
func parseInvoiceNumber(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
