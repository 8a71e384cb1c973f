package postgres

import (
	"time"

	"github.com/google/uuid"
)

// OrderModel mirrors a row of orders. Money columns travel as text so the
// decimal value is never routed through float64.
type OrderModel struct {
	ID                   int64
	Status               string
	Total                string
	FirstName            string
	LastName             string
	Email                string
	Phone                string
	TransactionReference string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CompletedAt          *time.Time
}

type SessionModel struct {
	OrderID              int64
	Amount               string
	InvoiceNumber        string
	FirstName            string
	LastName             string
	Email                string
	Phone                string
	ReturnURL            string
	Environment          string
	AuthorizationToken   string
	PaymentToken         string
	TokenProvenance      string
	PaymentURL           string
	AccessKey            string
	StatusCheckStartedAt *time.Time
	PollingActive        bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type EventModel struct {
	ID          uuid.UUID
	OrderID     int64
	Type        string
	Status      string
	Reference   string
	Driver      string
	Recovered   bool
	OccurredAt  time.Time
	PublishedAt *time.Time
}
