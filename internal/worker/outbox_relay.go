package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/telemetry"
)

// OutboxRelay publishes order events written by the reconciler and marks
// them published. Delivery is at least once.
type OutboxRelay struct {
	outbox    application.OutboxRepository
	publisher application.EventPublisher
	interval  time.Duration
	batchSize int
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

func NewOutboxRelay(
	outbox application.OutboxRepository,
	publisher application.EventPublisher,
	interval time.Duration,
	batchSize int,
	metrics *telemetry.Metrics,
	logger *slog.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		metrics:   metrics,
		logger:    logger,
	}
}

func (w *OutboxRelay) Start(ctx context.Context) {
	w.logger.Info("outbox relay started", "interval", w.interval, "batch_size", w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox relay stopping")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("outbox relay cycle failed", "error", err)
			}
		}
	}
}

// RunOnce publishes one batch and returns how many events were marked.
func (w *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	events, err := w.outbox.ListPendingEvents(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := w.publisher.Publish(ctx, events...); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	marked := 0
	for _, e := range events {
		if err := w.outbox.MarkEventPublished(ctx, e, now); err != nil {
			w.logger.Error("failed to mark event published", "event_id", e.ID, "error", err)
			continue
		}
		marked++
		if w.metrics != nil {
			w.metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
		}
	}

	w.logger.Info("published order events", "count", marked)
	return marked, nil
}
