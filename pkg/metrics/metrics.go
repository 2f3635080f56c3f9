package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	JobsCreatedTotal   prometheus.Counter
	JobsClaimedTotal   prometheus.Counter
	JobsFinalizedTotal *prometheus.CounterVec

	ChunkClaimsTotal     *prometheus.CounterVec
	CallbacksTotal       *prometheus.CounterVec
	ChunksReclaimedTotal prometheus.Counter

	AuthFailuresTotal prometheus.Counter
)

func Init() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	JobsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_jobs_created_total",
			Help: "Total number of scrape jobs created.",
		},
	)

	JobsClaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_jobs_claimed_total",
			Help: "Total number of jobs claimed via the non-chunked poll path.",
		},
	)

	JobsFinalizedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_jobs_finalized_total",
			Help: "Total number of jobs finalized, by terminal status.",
		},
		[]string{"status"},
	)

	ChunkClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chunk_claims_total",
			Help: "Total number of chunk claim attempts, by outcome.",
		},
		[]string{"outcome"}, // outcome: claimed, empty
	)

	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runner_callbacks_total",
			Help: "Total number of runner result callbacks, by kind and reported status.",
		},
		[]string{"kind", "status"}, // kind: chunk, job
	)

	ChunksReclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chunks_reclaimed_total",
			Help: "Total number of expired chunk claims returned to pending.",
		},
	)

	AuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "runner_auth_failures_total",
			Help: "Total number of runner requests rejected as unauthorized.",
		},
	)
}
