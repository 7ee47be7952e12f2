package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch ingestion metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attolytics_batches_total",
			Help: "Total number of event batches received",
		},
		[]string{"tenant", "status"},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attolytics_batch_size_events",
			Help:    "Number of events per submitted batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	RowsInsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attolytics_rows_inserted_total",
			Help: "Total number of rows committed, per table",
		},
		[]string{"table"},
	)

	ValidationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attolytics_validation_errors_total",
			Help: "Total number of rejected batches by validation error kind",
		},
		[]string{"kind"},
	)

	// Insert execution metrics
	InsertDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attolytics_insert_duration_seconds",
			Help:    "Duration of batch insert transactions in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	InsertErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attolytics_insert_errors_total",
			Help: "Total number of failed insert transactions",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attolytics_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"tenant"},
	)
)
