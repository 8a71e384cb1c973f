package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paytoday_gateway"

type Metrics struct {
	registry *prometheus.Registry

	ReconcileOutcomes *prometheus.CounterVec
	ProviderRequests  *prometheus.HistogramVec
	ActivePolls       prometheus.Gauge
	EventsPublished   *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
}

// NewMetrics registers the gateway collectors on a fresh registry so tests
// can build as many as they need.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		ReconcileOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_outcomes_total",
			Help:      "Reconciliation results by driver and outcome.",
		}, []string{"driver", "outcome"}),
		ProviderRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "PayToday API call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op", "result"}),
		ActivePolls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduled_polls",
			Help:      "Orders with a scheduled status check.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_events_published_total",
			Help:      "Order events delivered by the outbox relay.",
		}, []string{"type"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests by route and status.",
		}, []string{"route", "status"}),
	}

	reg.MustRegister(m.ReconcileOutcomes, m.ProviderRequests, m.ActivePolls, m.EventsPublished, m.HTTPRequests)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
