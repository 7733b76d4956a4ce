package pool

import "github.com/shardpool/rrpool/lib/metrics"

// Pool utilization metrics
var (
	// PoolConnectionsMax is the live object cap.
	PoolConnectionsMax = metrics.NewGauge(
		"rrpool_pool_connections_max",
		"Maximum number of live connections in the pool",
	)
	// PoolConnectionsOpen is the current number of live connections.
	PoolConnectionsOpen = metrics.NewGauge(
		"rrpool_pool_connections_open",
		"Current number of live connections",
	)
	// PoolConnectionsIdle is the current number of idle connections.
	PoolConnectionsIdle = metrics.NewGauge(
		"rrpool_pool_connections_idle",
		"Current number of idle connections in the pool",
	)
	// PoolConnectionsActive is the number of connections currently borrowed.
	PoolConnectionsActive = metrics.NewGauge(
		"rrpool_pool_connections_active",
		"Number of connections currently borrowed",
	)
	// PoolWaiters is the number of borrowers blocked on the pool.
	PoolWaiters = metrics.NewGauge(
		"rrpool_pool_waiters",
		"Number of borrowers waiting for a connection",
	)
	// PoolBorrowTotal is the total number of borrow attempts.
	PoolBorrowTotal = metrics.NewCounter(
		"rrpool_pool_borrow_total",
		"Total number of connection borrow attempts",
	)
	// PoolBorrowFailedTotal is the number of failed borrows.
	PoolBorrowFailedTotal = metrics.NewCounter(
		"rrpool_pool_borrow_failed_total",
		"Total number of failed connection borrows",
	)
	// PoolReturnTotal is the number of accepted returns.
	PoolReturnTotal = metrics.NewCounter(
		"rrpool_pool_return_total",
		"Total number of connection returns",
	)
	// PoolCreatedTotal is the number of objects created by the pool.
	PoolCreatedTotal = metrics.NewCounter(
		"rrpool_pool_created_total",
		"Total number of connections created by the pool",
	)
	// PoolDestroyedTotal is the number of objects destroyed by the pool.
	PoolDestroyedTotal = metrics.NewCounter(
		"rrpool_pool_destroyed_total",
		"Total number of connections destroyed by the pool",
	)
	// PoolValidationFailsTotal is the number of validation failures.
	PoolValidationFailsTotal = metrics.NewCounter(
		"rrpool_pool_validation_fails_total",
		"Total number of connections that failed validation",
	)
	// PoolBorrowLatency tracks time spent borrowing connections.
	PoolBorrowLatency = metrics.NewHistogram(
		"rrpool_pool_borrow_duration_seconds",
		"Time spent borrowing a connection from the pool",
		metrics.DefaultLatencyBuckets,
	)
)

// UpdateMetrics updates the pool gauges from Stats.
func UpdateMetrics(stats Stats) {
	PoolConnectionsMax.Set(int64(stats.MaxTotal))
	PoolConnectionsOpen.Set(int64(stats.NumOpen))
	PoolConnectionsIdle.Set(int64(stats.NumIdle))
	PoolConnectionsActive.Set(int64(stats.NumActive))
	PoolWaiters.Set(int64(stats.NumWaiters))
}
