// Package observability provides logging, metrics, and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stride_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// GoalsCreated counts goals created by type.
	GoalsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_goals_created_total",
		Help: "Total number of goals created by goal type",
	}, []string{"type"})

	// GoalsCompleted counts goal completions by trigger (manual or auto).
	GoalsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_goals_completed_total",
		Help: "Total number of goals completed by trigger",
	}, []string{"trigger"})

	// PostsCreated counts posts by post type.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_posts_created_total",
		Help: "Total number of posts created by post type",
	}, []string{"type"})

	// KudozToggles counts kudoz give/remove operations.
	KudozToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_kudoz_toggles_total",
		Help: "Total number of kudoz give/remove operations",
	}, []string{"direction"})

	// RateLimitDenials counts sliding-window admission denials by action.
	RateLimitDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_rate_limit_denials_total",
		Help: "Total number of rate limit denials by action",
	}, []string{"action"})

	// ModerationRejections counts content rejected by the moderation gate.
	ModerationRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stride_moderation_rejections_total",
		Help: "Total number of texts rejected by the moderation gate",
	})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
