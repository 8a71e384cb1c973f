package paytoday

import (
	"context"
	"time"

	"github.com/DanielPopoola/paytoday-gateway/internal/application"
	"github.com/DanielPopoola/paytoday-gateway/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedClient wraps a provider with a span and a latency sample per call.
type InstrumentedClient struct {
	inner   application.PaymentProvider
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

func NewInstrumentedClient(inner application.PaymentProvider, tracer trace.Tracer, metrics *telemetry.Metrics) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, tracer: tracer, metrics: metrics}
}

var _ application.PaymentProvider = (*InstrumentedClient)(nil)

func (c *InstrumentedClient) Authorize(ctx context.Context) (string, error) {
	ctx, done := c.start(ctx, "authorize")
	token, err := c.inner.Authorize(ctx)
	done(err)
	return token, err
}

func (c *InstrumentedClient) CreateIntent(ctx context.Context, authToken string, req application.IntentRequest) (*application.Intent, error) {
	ctx, done := c.start(ctx, "create_intent", attribute.String("paytoday.invoice_number", req.InvoiceNumber))
	intent, err := c.inner.CreateIntent(ctx, authToken, req)
	if err == nil {
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("paytoday.token_provenance", string(intent.Token.Provenance)),
		)
	}
	done(err)
	return intent, err
}

func (c *InstrumentedClient) QueryStatus(ctx context.Context, paymentToken, authToken string) (*application.StatusResult, error) {
	ctx, done := c.start(ctx, "query_status")
	res, err := c.inner.QueryStatus(ctx, paymentToken, authToken)
	if err == nil {
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.String("paytoday.transaction_status", string(res.Status)),
		)
	}
	done(err)
	return res, err
}

func (c *InstrumentedClient) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := c.tracer.Start(ctx, "paytoday."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	began := time.Now()

	return ctx, func(err error) {
		result := "ok"
		if err != nil {
			result = "error"
			if provErr, ok := application.IsProviderError(err); ok {
				result = provErr.Code
				span.SetAttributes(attribute.Int("http.response.status_code", provErr.StatusCode))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		if c.metrics != nil {
			c.metrics.ProviderRequests.WithLabelValues(op, result).Observe(time.Since(began).Seconds())
		}
		span.End()
	}
}
