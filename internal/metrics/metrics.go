// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "walletsync"

var (
	// RecordsApplied counts records handed to the ledger, by ingestion source and outcome.
	RecordsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_applied_total",
			Help:      "Chain transactions processed by the ledger apply routine.",
		},
		[]string{"source", "outcome"},
	)
	// ExplorerRequests counts explorer API calls by network, action and result.
	ExplorerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "explorer_requests_total",
			Help:      "Block explorer API requests.",
		},
		[]string{"network", "action", "result"},
	)
	// ExplorerLatency observes explorer round trips.
	ExplorerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "explorer_request_duration_seconds",
			Help:      "Block explorer request latency.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"network", "action"},
	)
	// SyncRuns counts sync invocations by result.
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Poll sync invocations.",
		},
		[]string{"result"},
	)
	// WebhookEvents counts inbound webhook envelopes by event type and status.
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Inbound chain webhook envelopes.",
		},
		[]string{"type", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RecordsApplied,
		ExplorerRequests,
		ExplorerLatency,
		SyncRuns,
		WebhookEvents,
	)
}
