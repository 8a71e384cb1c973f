package postgres

import (
	"fmt"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

func orderToDomain(m OrderModel) (*domain.Order, error) {
	total, err := decimal.NewFromString(m.Total)
	if err != nil {
		return nil, fmt.Errorf("order %d has unreadable total %q: %w", m.ID, m.Total, err)
	}
	return &domain.Order{
		ID:     m.ID,
		Status: domain.OrderStatus(m.Status),
		Total:  total,
		Customer: domain.Customer{
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Email:     m.Email,
			Phone:     m.Phone,
		},
		TransactionReference: m.TransactionReference,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
		CompletedAt:          m.CompletedAt,
	}, nil
}

func orderToModel(o *domain.Order) OrderModel {
	return OrderModel{
		ID:                   o.ID,
		Status:               string(o.Status),
		Total:                o.Total.StringFixed(2),
		FirstName:            o.Customer.FirstName,
		LastName:             o.Customer.LastName,
		Email:                o.Customer.Email,
		Phone:                o.Customer.Phone,
		TransactionReference: o.TransactionReference,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		CompletedAt:          o.CompletedAt,
	}
}

func sessionToDomain(m SessionModel) (*domain.PaymentSession, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("session %d has unreadable amount %q: %w", m.OrderID, m.Amount, err)
	}
	s := &domain.PaymentSession{
		OrderID:       m.OrderID,
		Amount:        amount,
		InvoiceNumber: m.InvoiceNumber,
		Customer: domain.Customer{
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Email:     m.Email,
			Phone:     m.Phone,
		},
		ReturnURL:            m.ReturnURL,
		Environment:          domain.Environment(m.Environment),
		AuthorizationToken:   m.AuthorizationToken,
		PaymentURL:           m.PaymentURL,
		AccessKey:            m.AccessKey,
		StatusCheckStartedAt: m.StatusCheckStartedAt,
		PollingActive:        m.PollingActive,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.PaymentToken != "" {
		s.PaymentToken = domain.PaymentToken{
			Value:      m.PaymentToken,
			Provenance: domain.TokenProvenance(m.TokenProvenance),
		}
	}
	return s, nil
}

func sessionToModel(s *domain.PaymentSession) SessionModel {
	return SessionModel{
		OrderID:              s.OrderID,
		Amount:               s.Amount.StringFixed(2),
		InvoiceNumber:        s.InvoiceNumber,
		FirstName:            s.Customer.FirstName,
		LastName:             s.Customer.LastName,
		Email:                s.Customer.Email,
		Phone:                s.Customer.Phone,
		ReturnURL:            s.ReturnURL,
		Environment:          string(s.Environment),
		AuthorizationToken:   s.AuthorizationToken,
		PaymentToken:         s.PaymentToken.Value,
		TokenProvenance:      string(s.PaymentToken.Provenance),
		PaymentURL:           s.PaymentURL,
		AccessKey:            s.AccessKey,
		StatusCheckStartedAt: s.StatusCheckStartedAt,
		PollingActive:        s.PollingActive,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func eventToDomain(m EventModel) *domain.OrderEvent {
	return &domain.OrderEvent{
		ID:          m.ID,
		OrderID:     m.OrderID,
		Type:        domain.EventType(m.Type),
		Status:      domain.TransactionStatus(m.Status),
		Reference:   m.Reference,
		Driver:      domain.Driver(m.Driver),
		Recovered:   m.Recovered,
		OccurredAt:  m.OccurredAt,
		PublishedAt: m.PublishedAt,
	}
}
