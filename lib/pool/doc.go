// Package pool provides a generic bounded object pool for managing
// reusable connections to external services.
//
// The pool supports:
//   - A live object cap (MaxTotal) and an idle cap (MaxIdle)
//   - Block, grow, or fail behavior when the cap is reached
//   - FIFO or LIFO serving of idle objects
//   - Validation on borrow, on return, and while idle
//   - A background evictor that drops stale objects and keeps MinIdle warm
//   - Metrics for pool utilization
//
// # Basic Usage
//
//	cfg := pool.DefaultConfig()
//	cfg.MaxTotal = 10
//	cfg.TestOnBorrow = true
//
//	p := pool.New(factory, cfg)
//	defer p.Close()
//
//	conn, err := p.Borrow(ctx)
//	if err != nil {
//	    return err
//	}
//	defer p.Return(conn)
//
//	// Use connection...
//
// A connection known to be broken is handed back with Invalidate, which
// destroys it instead of idling it.
//
// # Factories
//
// The Factory interface creates, validates, and destroys objects. Validate
// and Destroy are always called without the pool lock held, so they may
// perform network I/O.
//
// # Metrics
//
// Pool utilization metrics are automatically registered with the metrics package:
//   - rrpool_pool_connections_max: Live object cap
//   - rrpool_pool_connections_open: Current live connections
//   - rrpool_pool_connections_idle: Current idle connections
//   - rrpool_pool_connections_active: Connections currently borrowed
//   - rrpool_pool_waiters: Borrowers blocked on the pool
//   - rrpool_pool_borrow_total: Total borrow attempts
//   - rrpool_pool_borrow_failed_total: Failed borrows
//   - rrpool_pool_return_total: Total returns
//   - rrpool_pool_created_total: Connections created
//   - rrpool_pool_destroyed_total: Connections destroyed
//   - rrpool_pool_validation_fails_total: Validation failures
package pool
