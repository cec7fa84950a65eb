package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LectoAttempts counts single HTTP attempts against Lecto by outcome
	// ("response" or "transport_error").
	LectoAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lecto_request_attempts_total",
			Help: "Total number of HTTP attempts sent to Lecto",
		},
		[]string{"outcome"},
	)

	// LectoErrors counts failed Lecto calls by error kind.
	LectoErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lecto_request_errors_total",
			Help: "Total number of failed Lecto calls",
		},
		[]string{"operation", "kind"},
	)

	// LectoLatency tracks whole-call latency including retries.
	LectoLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lecto_request_duration_seconds",
			Help:    "Lecto call latency in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lecto_bridge_exports_total",
			Help: "Total number of remind exports by result",
		},
		[]string{"result"},
	)

	SyncedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lecto_bridge_synced_records_total",
			Help: "Records pushed to Lecto by the debt sync",
		},
		[]string{"record", "result"},
	)
)
