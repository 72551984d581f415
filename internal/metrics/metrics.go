package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homedrive_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "homedrive_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homedrive_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Thumbnail pipeline metrics
var (
	ThumbCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homedrive_thumb_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homedrive_thumb_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homedrive_thumb_generations_total",
			Help: "Total number of thumbnail generation attempts by outcome",
		},
		[]string{"outcome"}, // "success", "locked", "failed"
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homedrive_thumb_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

// Scheduler metrics
var (
	QueuePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homedrive_queue_pending",
			Help: "Number of generation tasks waiting in the in-process queue",
		},
	)

	QueueInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "homedrive_queue_in_flight",
			Help: "Number of generation tasks currently executing",
		},
	)

	BrokerPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homedrive_broker_published_total",
			Help: "Total number of generation requests published to the broker",
		},
	)

	BrokerConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "homedrive_broker_consumed_total",
			Help: "Total number of generation requests consumed from the broker",
		},
	)
)

// Quota metrics
var (
	QuotaReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homedrive_quota_reservations_total",
			Help: "Total number of quota reservation attempts",
		},
		[]string{"outcome"}, // "accepted", "rejected"
	)
)
