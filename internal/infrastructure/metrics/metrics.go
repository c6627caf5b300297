package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestTotal counts ingestion calls by outcome ("ok" or a lower-cased error kind).
	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_ingest_total",
		Help: "Ingestion calls by result.",
	}, []string{"result"})

	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "telemetry_ingest_duration_seconds",
		Help:    "Time spent in the ingestion pipeline.",
		Buckets: prometheus.DefBuckets,
	})

	// DeviceUpsertFailures counts failed last-seen updates. These never fail a request.
	DeviceUpsertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "telemetry_device_upsert_failures_total",
		Help: "Device last-seen upserts that failed.",
	})

	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_publish_failures_total",
		Help: "Reading fan-out failures by sink.",
	}, []string{"sink"})

	QueryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "telemetry_query_total",
		Help: "Dashboard queries by operation and result.",
	}, []string{"op", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
