package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	JobsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwash_jobs_created_total",
			Help: "Wash jobs committed, by branch code",
		},
		[]string{"branch"},
	)

	JobLineItems = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwash_job_line_items_total",
			Help: "Line items committed, by split category",
		},
		[]string{"category"},
	)

	JobsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwash_jobs_rejected_total",
			Help: "Job submissions rejected, by error kind",
		},
		[]string{"kind"},
	)

	SummaryCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwash_summary_cache_lookups_total",
			Help: "Summary cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	ReconcileMismatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carwash_reconcile_mismatches_total",
			Help: "Aggregate rows found out of line with recomputation",
		},
		[]string{"branch"},
	)

	LiveClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "carwash_live_clients",
			Help: "Connected live websocket clients",
		},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call twice.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			JobsCreated,
			JobLineItems,
			JobsRejected,
			SummaryCacheLookups,
			ReconcileMismatches,
			LiveClients,
		)
	})
}
