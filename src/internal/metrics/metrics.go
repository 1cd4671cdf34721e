package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the wallet collectors on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestCount     *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	LedgerOperations *prometheus.CounterVec
	TransfersSettled *prometheus.CounterVec
	PublishTotal     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LedgerOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_ledger_operations_total",
				Help: "Ledger operations by name and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		TransfersSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_transfers_settled_total",
				Help: "Transfer records that reached a terminal status.",
			},
			[]string{"status"},
		),
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_event_publish_total",
				Help: "Ledger event publish attempts.",
			},
			[]string{"topic", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCount,
		m.RequestDuration,
		m.LedgerOperations,
		m.TransfersSettled,
		m.PublishTotal,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestCount.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) LedgerOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.LedgerOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) TransferSettled(status string) {
	if m == nil {
		return
	}
	m.TransfersSettled.WithLabelValues(status).Inc()
}

func (m *Metrics) Publish(topic string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.PublishTotal.WithLabelValues(topic, status).Inc()
}
