// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Transaction metrics
	TransactionsSubmitted *prometheus.CounterVec
	TransactionsFinished  *prometheus.CounterVec
	TransactionLatency    *prometheus.HistogramVec

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec
	RPCRetries     *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "token_oracle_kit"
	}
	factory := promauto.With(reg)

	return &Metrics{
		TransactionsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "submitted_total",
			Help:      "Total number of transactions submitted by tracking mode and action",
		}, []string{"mode", "action"}),
		TransactionsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "finished_total",
			Help:      "Total number of transactions reaching a terminal status",
		}, []string{"status", "action"}),
		TransactionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "confirmation_latency_seconds",
			Help:      "Time from submission to terminal status in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Ethereum JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Total number of failed JSON-RPC calls by method",
		}, []string{"method"}),
		RPCRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "retries_total",
			Help:      "Total number of JSON-RPC retry attempts by method",
		}, []string{"method"}),
	}
}

// RecordSubmitted counts a submitted transaction.
func (m *Metrics) RecordSubmitted(mode, action string) {
	if m == nil {
		return
	}
	m.TransactionsSubmitted.WithLabelValues(mode, action).Inc()
}

// RecordFinished counts a transaction reaching a terminal status.
func (m *Metrics) RecordFinished(status, action string, seconds float64) {
	if m == nil {
		return
	}
	m.TransactionsFinished.WithLabelValues(status, action).Inc()
	m.TransactionLatency.WithLabelValues(status).Observe(seconds)
}

// ObserveRPC records the latency and outcome of one JSON-RPC call.
func (m *Metrics) ObserveRPC(method string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		m.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordRetry counts a JSON-RPC retry attempt.
func (m *Metrics) RecordRetry(method string) {
	if m == nil {
		return
	}
	m.RPCRetries.WithLabelValues(method).Inc()
}

// Handler returns an HTTP handler serving the metrics in gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
