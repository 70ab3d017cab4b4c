package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamCallsTotal tracks upstream API calls per resource kind and outcome
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoregate_upstream_calls_total",
			Help: "Total number of upstream API calls",
		},
		[]string{"kind", "outcome"},
	)

	// UpstreamLatency tracks upstream call latency
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scoregate_upstream_latency_seconds",
			Help:    "Upstream call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// CacheHitsTotal tracks cache hits per tier and resource kind
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoregate_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"tier", "kind"},
	)

	// CacheMissesTotal tracks cache misses per resource kind
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoregate_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"kind"},
	)

	// QuotaDenialsTotal tracks requests denied by the quota governor
	QuotaDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoregate_quota_denials_total",
			Help: "Total number of requests denied by the quota governor",
		},
		[]string{"bucket", "reason"},
	)

	// BackoffActivationsTotal tracks backoff windows opened per class
	BackoffActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoregate_backoff_activations_total",
			Help: "Total number of backoff windows opened",
		},
		[]string{"class"},
	)

	// TokenLevel tracks the current token bucket level
	TokenLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scoregate_quota_token_level",
			Help: "Current token bucket level",
		},
	)

	// PendingFetches tracks in-flight coalesced fetches
	PendingFetches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scoregate_pending_fetches",
			Help: "Number of in-flight coalesced fetches",
		},
	)

	// CoalescedWaitersTotal tracks callers that joined an existing fetch
	CoalescedWaitersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scoregate_coalesced_waiters_total",
			Help: "Total number of callers that joined an existing in-flight fetch",
		},
	)

	// StaleServesTotal tracks responses served from stale cache under quota denial
	StaleServesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoregate_stale_serves_total",
			Help: "Total number of stale cache responses served under quota denial",
		},
		[]string{"kind"},
	)

	// IntegrityRejectionsTotal tracks permanent writes rejected by validators
	IntegrityRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoregate_integrity_rejections_total",
			Help: "Total number of payloads rejected by the completeness validator",
		},
		[]string{"kind"},
	)
)
