package cache

// Metric names tracked with stats.Tracker.
const (
	MetricHit         = "cache_hit"
	MetricMiss        = "cache_miss"
	MetricExpired     = "cache_expired"
	MetricWrite       = "cache_write"
	MetricDelete      = "cache_delete"
	MetricInvalidated = "cache_invalidated"
	MetricEvict       = "cache_evict"
	MetricItems       = "cache_items"
	MetricBuild       = "cache_build"
	MetricFailed      = "cache_failed"
	MetricStaleWrite  = "cache_stale_write"

	// MetricUserInvalidation counts Invalidator.InvalidateUser calls,
	// removed entries are counted by caches with MetricInvalidated.
	MetricUserInvalidation = "cache_user_invalidation"
)
