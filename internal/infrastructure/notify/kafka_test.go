package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/DanielPopoola/paytoday-gateway/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}

	event := domain.NewOrderEvent(42, domain.EventPaymentCompleted, domain.TransactionSuccess, "REF-9", domain.DriverRedirect)
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "payment.completed", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "REF-9", decoded["reference"])
	assert.Equal(t, "redirect", decoded["driver"])
	assert.Equal(t, float64(42), decoded["order_id"])
}

func TestKafkaPublisher_WriterFailure(t *testing.T) {
	p := &KafkaPublisher{writer: &fakeWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), domain.NewOrderEvent(1, domain.EventPaymentFailed, domain.TransactionFailed, "", domain.DriverScheduled))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestKafkaPublisher_NoEvents(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w}
	require.NoError(t, p.Publish(context.Background()))
	assert.Empty(t, w.msgs)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), domain.NewOrderEvent(5, domain.EventPaymentFailed, domain.TransactionCancelled, "", domain.DriverClientPoll)))
	assert.Contains(t, buf.String(), `"order_id":5`)
	assert.Contains(t, buf.String(), `"driver":"client_poll"`)
}
