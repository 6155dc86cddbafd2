package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthFlowsStarted counts sign-in flows initiated.
	AuthFlowsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiktok_signin_flows_started_total",
			Help: "The total number of sign-in flows initiated.",
		},
	)

	// CallbacksProcessed counts provider callbacks by outcome.
	CallbacksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiktok_signin_callbacks_total",
			Help: "The total number of provider callbacks processed.",
		},
		[]string{"outcome"},
	)

	// ExpiredCodeRestarts counts flows auto-restarted after an expired code.
	ExpiredCodeRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiktok_signin_expired_code_restarts_total",
			Help: "The total number of flows restarted because the authorization code expired.",
		},
	)

	// HealthProbes counts backend health probe runs by result.
	HealthProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiktok_signin_health_probes_total",
			Help: "The total number of backend health probe runs.",
		},
		[]string{"result"},
	)

	// TokenExchangeDuration is a histogram of token exchange round-trip time.
	TokenExchangeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tiktok_signin_token_exchange_duration_seconds",
			Help:    "A histogram of the token exchange duration.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PostsScheduled counts posts accepted by the scheduler.
	PostsScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tiktok_signin_posts_scheduled_total",
			Help: "The total number of posts scheduled.",
		},
	)

	// PostsDispatched counts scheduled posts dispatched, by final status.
	PostsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tiktok_signin_posts_dispatched_total",
			Help: "The total number of scheduled posts dispatched.",
		},
		[]string{"status"},
	)
)
