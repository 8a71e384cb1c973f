package notify

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
)

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

var _ application.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...*domain.OrderEvent) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "order event",
			"event_id", e.ID,
			"order_id", e.OrderID,
			"type", e.Type,
			"status", e.Status,
			"driver", e.Driver,
			"recovered", e.Recovered,
		)
	}
	return nil
}
