package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/warp/rent-engine/billing"
)

// =============================================================================
// METRICS - Prometheus instrumentation for ledger operations
// =============================================================================

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	outstanding prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rentengine",
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rentengine",
			Name:      "ledger_operation_duration_seconds",
			Help:      "Ledger operation latency, store round trips included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		outstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rentengine",
			Name:      "outstanding_balance",
			Help:      "Sum of the closing balance of every contract.",
		}),
	}
	m.registry.MustRegister(
		m.operations,
		m.duration,
		m.outstanding,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one operation. The outcome is "ok" or the error kind.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(billing.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetOutstanding(total decimal.Decimal) {
	m.outstanding.Set(total.InexactFloat64())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
