// Package pool provides a generic bounded object pool.
// It supports configurable capacity, exhaustion policies, FIFO or LIFO
// serving, validation hooks, idle eviction, and metrics for monitoring
// pool utilization.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/shardpool/rrpool/lib/errors"
	"github.com/shardpool/rrpool/lib/metrics"
)

var (
	// ErrPoolClosed is returned when operating on a closed pool.
	ErrPoolClosed = apperrors.ErrPoolClosed
	// ErrPoolExhausted is returned by the Fail policy when no object is available.
	ErrPoolExhausted = apperrors.ErrPoolExhausted
	// ErrTimeout is returned when a blocked borrow waits longer than MaxWait.
	ErrTimeout = apperrors.ErrTimeout
	// ErrInvalidConnection is returned when a freshly created object fails validation.
	ErrInvalidConnection = errors.New("pool: connection is invalid")
	// ErrUnknownConnection is returned when an object did not come from this pool.
	ErrUnknownConnection = errors.New("pool: connection does not belong to this pool")
	// ErrAlreadyReturned is returned when an object is returned or invalidated twice.
	ErrAlreadyReturned = errors.New("pool: connection is not borrowed")
)

// Connection represents a poolable object. Implementations must be
// comparable; pointer types are the usual choice.
type Connection interface {
	// Close closes the connection.
	Close() error
}

// Factory creates, validates, and destroys pooled objects.
type Factory interface {
	// Create makes a new object.
	Create(ctx context.Context) (Connection, error)
	// Validate reports whether obj is still usable.
	Validate(ctx context.Context, obj Connection) bool
	// Destroy releases obj. It must not fail.
	Destroy(obj Connection)
}

// ExhaustedAction selects what Borrow does when the pool is at MaxTotal.
type ExhaustedAction int

const (
	// WhenExhaustedBlock waits up to MaxWait for an object to be returned.
	WhenExhaustedBlock ExhaustedAction = iota
	// WhenExhaustedGrow creates a new object beyond MaxTotal.
	WhenExhaustedGrow
	// WhenExhaustedFail returns ErrPoolExhausted immediately.
	WhenExhaustedFail
)

// String returns the policy name.
func (a ExhaustedAction) String() string {
	switch a {
	case WhenExhaustedBlock:
		return "block"
	case WhenExhaustedGrow:
		return "grow"
	case WhenExhaustedFail:
		return "fail"
	default:
		return fmt.Sprintf("ExhaustedAction(%d)", int(a))
	}
}

// ParseExhaustedAction parses "block", "grow", or "fail".
func ParseExhaustedAction(s string) (ExhaustedAction, error) {
	switch s {
	case "block", "":
		return WhenExhaustedBlock, nil
	case "grow":
		return WhenExhaustedGrow, nil
	case "fail":
		return WhenExhaustedFail, nil
	default:
		return WhenExhaustedBlock, fmt.Errorf("unknown exhausted action %q", s)
	}
}

// Defaults applied by DefaultConfig.
const (
	DefaultMaxTotal    = 8
	DefaultMaxIdle     = 8
	DefaultMaxWait     = 100 * time.Millisecond
	DefaultMaxIdleTime = 30 * time.Minute
)

// Config configures the pool.
type Config struct {
	// MaxTotal caps live objects (idle plus borrowed). Negative means no limit.
	// Default: 8
	MaxTotal int
	// MaxIdle caps idle objects; returns beyond it are destroyed.
	// Negative means no limit.
	// Default: 8
	MaxIdle int
	// MinIdle is the idle count the evictor tops up to.
	// Default: 0
	MinIdle int
	// MaxWait bounds how long a blocked borrow waits. Non-positive values
	// are replaced by DefaultMaxWait, so a borrow never waits forever.
	// Default: 100ms
	MaxWait time.Duration
	// WhenExhausted selects the policy at MaxTotal.
	// Default: WhenExhaustedBlock
	WhenExhausted ExhaustedAction
	// LIFO serves the most recently returned object first. When false
	// the least recently returned object is served first.
	// Default: false
	LIFO bool
	// TestOnBorrow validates objects before handing them out.
	TestOnBorrow bool
	// TestOnReturn validates objects before idling them.
	TestOnReturn bool
	// TestWhileIdle validates idle objects during eviction runs.
	TestWhileIdle bool
	// MaxIdleTime is how long an object may sit idle. Zero disables the check.
	// Default: 30 minutes
	MaxIdleTime time.Duration
	// EvictionInterval is how often the evictor runs. Zero disables it.
	// Default: 0
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTotal:      DefaultMaxTotal,
		MaxIdle:       DefaultMaxIdle,
		MinIdle:       0,
		MaxWait:       DefaultMaxWait,
		WhenExhausted: WhenExhaustedBlock,
		LIFO:          false,
		MaxIdleTime:   DefaultMaxIdleTime,
	}
}

// pooledConn wraps an object with metadata.
type pooledConn struct {
	conn      Connection
	createdAt time.Time
	idleSince time.Time
	borrowed  bool
}

// Pool is a bounded object pool.
type Pool struct {
	factory  Factory
	config   Config
	mu       sync.Mutex
	cond     *sync.Cond
	idle     []*pooledConn
	all      map[Connection]*pooledConn
	creating int
	waiters  int
	closed   bool

	evicting bool
	stop     chan struct{}
	evictWG  sync.WaitGroup

	// Metrics
	borrowCount  uint64
	borrowOK     uint64
	borrowFailed uint64
	returnCount  uint64
	created      uint64
	destroyed    uint64
	validateFail uint64
}

// New creates a new pool. A zero MaxTotal is replaced by DefaultMaxTotal.
func New(factory Factory, cfg Config) *Pool {
	if cfg.MaxTotal == 0 {
		cfg.MaxTotal = DefaultMaxTotal
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}

	p := &Pool{
		factory: factory,
		config:  cfg,
		all:     make(map[Connection]*pooledConn),
		stop:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)

	p.mu.Lock()
	p.startEvictorLocked()
	p.mu.Unlock()

	log.WithField("maxTotal", cfg.MaxTotal).
		WithField("maxIdle", cfg.MaxIdle).
		WithField("maxWait", cfg.MaxWait).
		WithField("whenExhausted", cfg.WhenExhausted.String()).
		WithField("lifo", cfg.LIFO).
		Debug("pool created")
	return p
}

// Borrow takes an object from the pool, creating one if capacity allows.
// At capacity it follows the WhenExhausted policy. Cancelling ctx aborts
// a blocked borrow.
func (p *Pool) Borrow(ctx context.Context) (Connection, error) {
	atomic.AddUint64(&p.borrowCount, 1)
	PoolBorrowTotal.Inc()
	timer := metrics.NewTimer(PoolBorrowLatency)

	conn, err := p.borrow(ctx)
	timer.ObserveDuration()
	if err != nil {
		atomic.AddUint64(&p.borrowFailed, 1)
		PoolBorrowFailedTotal.Inc()
		return nil, err
	}
	atomic.AddUint64(&p.borrowOK, 1)
	return conn, nil
}

func (p *Pool) borrow(ctx context.Context) (Connection, error) {
	var deadline time.Time

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if err := ctx.Err(); err != nil {
			p.mu.Unlock()
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
			}
			return nil, err
		}

		pc, stale := p.popIdleLocked()
		if pc != nil {
			pc.borrowed = true
		}
		if len(stale) > 0 {
			p.mu.Unlock()
			log.WithField("count", len(stale)).Debug("closing stale connections")
			for _, conn := range stale {
				p.destroyObject(conn)
			}
			p.mu.Lock()
			p.cond.Broadcast()
			if pc == nil {
				continue
			}
		}

		if pc != nil {
			testOnBorrow := p.config.TestOnBorrow
			p.mu.Unlock()

			if !testOnBorrow || p.factory.Validate(ctx, pc.conn) {
				log.Debug("borrowed idle connection from pool")
				return pc.conn, nil
			}

			atomic.AddUint64(&p.validateFail, 1)
			PoolValidationFailsTotal.Inc()
			log.Debug("idle connection failed validation on borrow")
			p.destroy(pc)

			p.mu.Lock()
			continue
		}

		if p.canCreateLocked() {
			p.creating++
			testOnBorrow := p.config.TestOnBorrow
			p.mu.Unlock()

			pc, err := p.create(ctx, true)
			if err != nil {
				return nil, err
			}
			if testOnBorrow && !p.factory.Validate(ctx, pc.conn) {
				atomic.AddUint64(&p.validateFail, 1)
				PoolValidationFailsTotal.Inc()
				p.destroy(pc)
				return nil, ErrInvalidConnection
			}
			log.Debug("created new connection")
			return pc.conn, nil
		}

		if p.config.WhenExhausted == WhenExhaustedFail {
			p.mu.Unlock()
			return nil, ErrPoolExhausted
		}

		if deadline.IsZero() {
			deadline = time.Now().Add(p.config.MaxWait)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.mu.Unlock()
			return nil, ErrTimeout
		}

		log.WithField("remaining", remaining).Debug("waiting for available connection")
		p.waiters++
		p.waitWithContext(ctx, remaining)
		p.waiters--
	}
}

// create runs the factory for a slot already reserved in p.creating.
// Caller must not hold the lock.
func (p *Pool) create(ctx context.Context, borrowed bool) (*pooledConn, error) {
	conn, err := p.factory.Create(ctx)

	p.mu.Lock()
	p.creating--
	if err != nil {
		p.cond.Signal()
		p.mu.Unlock()
		log.WithError(err).Debug("failed to create new connection")
		return nil, err
	}
	if p.closed {
		p.mu.Unlock()
		p.factory.Destroy(conn)
		p.countDestroyed()
		return nil, ErrPoolClosed
	}

	now := time.Now()
	pc := &pooledConn{
		conn:      conn,
		createdAt: now,
		idleSince: now,
		borrowed:  borrowed,
	}
	p.all[conn] = pc
	if !borrowed {
		p.idle = append(p.idle, pc)
		p.cond.Signal()
	}
	p.mu.Unlock()

	atomic.AddUint64(&p.created, 1)
	PoolCreatedTotal.Inc()
	return pc, nil
}

// canCreateLocked reports whether a new object may be created (caller must hold lock).
func (p *Pool) canCreateLocked() bool {
	if p.config.WhenExhausted == WhenExhaustedGrow || p.config.MaxTotal < 0 {
		return true
	}
	return len(p.all)+p.creating < p.config.MaxTotal
}

// popIdleLocked removes the next idle object in serving order (caller must hold lock).
// Objects idle longer than MaxIdleTime are dropped from the pool and
// returned as stale; the caller destroys them after unlocking.
func (p *Pool) popIdleLocked() (*pooledConn, []Connection) {
	now := time.Now()
	var stale []Connection
	for len(p.idle) > 0 {
		var pc *pooledConn
		if p.config.LIFO {
			pc = p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]
		} else {
			pc = p.idle[0]
			p.idle[0] = nil
			p.idle = p.idle[1:]
		}

		if p.config.MaxIdleTime > 0 && now.Sub(pc.idleSince) > p.config.MaxIdleTime {
			delete(p.all, pc.conn)
			stale = append(stale, pc.conn)
			continue
		}
		return pc, stale
	}
	return nil, stale
}

// waitWithContext waits for a condition signal, the timeout, or context
// cancellation (caller must hold lock).
func (p *Pool) waitWithContext(ctx context.Context, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		case <-done:
			return
		}
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	}()
	p.cond.Wait()
	close(done)
}

// Return gives a borrowed object back to the pool. The object is destroyed
// instead of idled when it fails TestOnReturn, when MaxIdle is reached, or
// when the pool is closed.
func (p *Pool) Return(conn Connection) error {
	if conn == nil {
		return ErrUnknownConnection
	}

	p.mu.Lock()
	pc, ok := p.all[conn]
	if !ok {
		p.mu.Unlock()
		return ErrUnknownConnection
	}
	if !pc.borrowed {
		p.mu.Unlock()
		return ErrAlreadyReturned
	}
	pc.borrowed = false
	atomic.AddUint64(&p.returnCount, 1)
	PoolReturnTotal.Inc()

	if p.closed {
		p.mu.Unlock()
		log.Debug("pool closed, destroying returned connection")
		p.destroy(pc)
		return nil
	}
	testOnReturn := p.config.TestOnReturn
	p.mu.Unlock()

	if testOnReturn && !p.factory.Validate(context.Background(), conn) {
		atomic.AddUint64(&p.validateFail, 1)
		PoolValidationFailsTotal.Inc()
		log.Debug("returned connection failed validation")
		p.destroy(pc)
		return nil
	}

	p.mu.Lock()
	if p.closed || (p.config.MaxIdle >= 0 && len(p.idle) >= p.config.MaxIdle) {
		p.mu.Unlock()
		log.Debug("idle limit reached, destroying returned connection")
		p.destroy(pc)
		return nil
	}
	pc.idleSince = time.Now()
	p.idle = append(p.idle, pc)
	p.cond.Signal()
	p.mu.Unlock()

	log.Debug("connection returned to pool")
	return nil
}

// Invalidate destroys a borrowed object that is known to be broken.
func (p *Pool) Invalidate(conn Connection) error {
	if conn == nil {
		return ErrUnknownConnection
	}

	p.mu.Lock()
	pc, ok := p.all[conn]
	if !ok {
		p.mu.Unlock()
		return ErrUnknownConnection
	}
	if !pc.borrowed {
		p.mu.Unlock()
		return ErrAlreadyReturned
	}
	pc.borrowed = false
	p.mu.Unlock()

	log.Debug("invalidating broken connection")
	p.destroy(pc)
	return nil
}

// AddIdle creates one object and places it in the idle set. It fails with
// ErrPoolExhausted when MaxTotal or MaxIdle leaves no room.
func (p *Pool) AddIdle(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	full := p.config.MaxTotal >= 0 && len(p.all)+p.creating >= p.config.MaxTotal
	idleFull := p.config.MaxIdle >= 0 && len(p.idle)+p.creating >= p.config.MaxIdle
	if full || idleFull {
		p.mu.Unlock()
		return ErrPoolExhausted
	}
	p.creating++
	p.mu.Unlock()

	_, err := p.create(ctx, false)
	return err
}

// destroy removes pc from the pool and destroys it outside the lock.
func (p *Pool) destroy(pc *pooledConn) {
	p.mu.Lock()
	delete(p.all, pc.conn)
	p.cond.Signal()
	p.mu.Unlock()

	p.destroyObject(pc.conn)
}

func (p *Pool) destroyObject(conn Connection) {
	p.factory.Destroy(conn)
	p.countDestroyed()
}

func (p *Pool) countDestroyed() {
	atomic.AddUint64(&p.destroyed, 1)
	PoolDestroyedTotal.Inc()
}

// Close closes the pool and destroys all idle objects. Borrowed objects
// are destroyed when they are returned.
func (p *Pool) Close() error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}

	p.closed = true
	close(p.stop)

	idle := p.idle
	p.idle = nil
	for _, pc := range idle {
		delete(p.all, pc.conn)
	}

	p.cond.Broadcast()
	p.mu.Unlock()

	for _, pc := range idle {
		p.destroyObject(pc.conn)
	}

	p.evictWG.Wait()

	log.WithField("destroyed", len(idle)).Debug("pool closed")
	return nil
}

// IsClosed reports whether Close has been called.
func (p *Pool) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// startEvictorLocked starts the evictor if it is enabled and not running
// (caller must hold lock).
func (p *Pool) startEvictorLocked() {
	if p.evicting || p.closed || p.config.EvictionInterval <= 0 {
		return
	}
	p.evicting = true
	p.evictWG.Add(1)
	go p.evictLoop()
}

// evictLoop periodically evicts idle objects. It exits on Close or when
// EvictionInterval is set to zero.
func (p *Pool) evictLoop() {
	defer p.evictWG.Done()

	for {
		p.mu.Lock()
		interval := p.config.EvictionInterval
		if interval <= 0 || p.closed {
			p.evicting = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		t := time.NewTimer(interval)
		select {
		case <-p.stop:
			t.Stop()
			return
		case <-t.C:
			p.Evict(context.Background())
		}
	}
}

// Evict runs one eviction pass: it destroys idle objects older than
// MaxIdleTime, validates the rest when TestWhileIdle is set, and then
// tops idle up to MinIdle.
func (p *Pool) Evict(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	now := time.Now()
	var doomed []*pooledConn
	keep := make([]*pooledConn, 0, len(p.idle))
	for _, pc := range p.idle {
		if p.config.MaxIdleTime > 0 && now.Sub(pc.idleSince) > p.config.MaxIdleTime {
			delete(p.all, pc.conn)
			doomed = append(doomed, pc)
			continue
		}
		keep = append(keep, pc)
	}

	// Objects under test are neither idle nor borrowed.
	var probe []*pooledConn
	if p.config.TestWhileIdle {
		probe = keep
		p.idle = nil
	} else {
		p.idle = keep
	}
	p.mu.Unlock()

	var healthy []*pooledConn
	for _, pc := range probe {
		if p.factory.Validate(ctx, pc.conn) {
			healthy = append(healthy, pc)
			continue
		}
		atomic.AddUint64(&p.validateFail, 1)
		PoolValidationFailsTotal.Inc()
		p.mu.Lock()
		delete(p.all, pc.conn)
		p.mu.Unlock()
		doomed = append(doomed, pc)
	}

	p.mu.Lock()
	if p.closed {
		for _, pc := range healthy {
			delete(p.all, pc.conn)
			doomed = append(doomed, pc)
		}
	} else if len(healthy) > 0 {
		p.idle = append(healthy, p.idle...)
		p.cond.Broadcast()
	}
	need := p.config.MinIdle - len(p.idle)
	p.mu.Unlock()

	for _, pc := range doomed {
		p.destroyObject(pc.conn)
	}
	if len(doomed) > 0 {
		log.WithField("destroyed", len(doomed)).Debug("eviction removed connections")
	}

	for i := 0; i < need; i++ {
		if err := p.AddIdle(ctx); err != nil {
			log.WithError(err).Debug("could not top up idle connections")
			break
		}
	}
}

// Config returns a copy of the current configuration.
func (p *Pool) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// SetMaxTotal changes the live object cap and wakes blocked borrowers.
func (p *Pool) SetMaxTotal(n int) {
	p.mu.Lock()
	p.config.MaxTotal = n
	p.cond.Broadcast()
	p.mu.Unlock()
}

// SetMaxIdle changes the idle cap, destroying surplus idle objects.
func (p *Pool) SetMaxIdle(n int) {
	p.mu.Lock()
	p.config.MaxIdle = n
	var surplus []*pooledConn
	if n >= 0 && len(p.idle) > n {
		extra := len(p.idle) - n
		surplus = append(surplus, p.idle[:extra]...)
		p.idle = append([]*pooledConn(nil), p.idle[extra:]...)
		for _, pc := range surplus {
			delete(p.all, pc.conn)
		}
		p.cond.Broadcast()
	}
	p.mu.Unlock()

	for _, pc := range surplus {
		p.destroyObject(pc.conn)
	}
}

// SetMinIdle changes the idle floor maintained by the evictor.
func (p *Pool) SetMinIdle(n int) {
	p.mu.Lock()
	p.config.MinIdle = n
	p.mu.Unlock()
}

// SetMaxWait changes the bound on blocked borrows. Non-positive values
// select DefaultMaxWait.
func (p *Pool) SetMaxWait(d time.Duration) {
	if d <= 0 {
		d = DefaultMaxWait
	}
	p.mu.Lock()
	p.config.MaxWait = d
	p.mu.Unlock()
}

// SetWhenExhausted changes the exhaustion policy and wakes blocked borrowers.
func (p *Pool) SetWhenExhausted(a ExhaustedAction) {
	p.mu.Lock()
	p.config.WhenExhausted = a
	p.cond.Broadcast()
	p.mu.Unlock()
}

// SetLIFO changes the serving order.
func (p *Pool) SetLIFO(lifo bool) {
	p.mu.Lock()
	p.config.LIFO = lifo
	p.mu.Unlock()
}

// SetTestOnBorrow toggles validation on borrow.
func (p *Pool) SetTestOnBorrow(v bool) {
	p.mu.Lock()
	p.config.TestOnBorrow = v
	p.mu.Unlock()
}

// SetTestOnReturn toggles validation on return.
func (p *Pool) SetTestOnReturn(v bool) {
	p.mu.Lock()
	p.config.TestOnReturn = v
	p.mu.Unlock()
}

// SetTestWhileIdle toggles validation during eviction runs.
func (p *Pool) SetTestWhileIdle(v bool) {
	p.mu.Lock()
	p.config.TestWhileIdle = v
	p.mu.Unlock()
}

// SetMaxIdleTime changes how long an object may sit idle.
func (p *Pool) SetMaxIdleTime(d time.Duration) {
	p.mu.Lock()
	p.config.MaxIdleTime = d
	p.mu.Unlock()
}

// SetEvictionInterval changes the evictor period. A positive value starts
// the evictor if it is not running; zero stops it after its current wait.
func (p *Pool) SetEvictionInterval(d time.Duration) {
	p.mu.Lock()
	p.config.EvictionInterval = d
	p.startEvictorLocked()
	p.mu.Unlock()
}

// Stats returns pool statistics.
type Stats struct {
	// MaxTotal is the live object cap.
	MaxTotal int `json:"max_total"`
	// MaxIdle is the idle object cap.
	MaxIdle int `json:"max_idle"`
	// MinIdle is the idle floor.
	MinIdle int `json:"min_idle"`
	// NumOpen is the current number of live objects.
	NumOpen int `json:"num_open"`
	// NumIdle is the current number of idle objects.
	NumIdle int `json:"num_idle"`
	// NumActive is the number of objects currently borrowed.
	NumActive int `json:"num_active"`
	// NumWaiters is the number of borrowers blocked on the pool.
	NumWaiters int `json:"num_waiters"`
	// BorrowCount is the total number of borrow attempts.
	BorrowCount uint64 `json:"borrow_count"`
	// BorrowSuccess is the number of successful borrows.
	BorrowSuccess uint64 `json:"borrow_success"`
	// BorrowFailed is the number of failed borrows.
	BorrowFailed uint64 `json:"borrow_failed"`
	// ReturnCount is the number of accepted returns.
	ReturnCount uint64 `json:"return_count"`
	// Created is the number of objects created.
	Created uint64 `json:"created"`
	// Destroyed is the number of objects destroyed.
	Destroyed uint64 `json:"destroyed"`
	// ValidationFails is the number of objects that failed validation.
	ValidationFails uint64 `json:"validation_fails"`
	// Closed reports whether the pool is closed.
	Closed bool `json:"closed"`
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := 0
	for _, pc := range p.all {
		if pc.borrowed {
			active++
		}
	}

	return Stats{
		MaxTotal:        p.config.MaxTotal,
		MaxIdle:         p.config.MaxIdle,
		MinIdle:         p.config.MinIdle,
		NumOpen:         len(p.all),
		NumIdle:         len(p.idle),
		NumActive:       active,
		NumWaiters:      p.waiters,
		BorrowCount:     atomic.LoadUint64(&p.borrowCount),
		BorrowSuccess:   atomic.LoadUint64(&p.borrowOK),
		BorrowFailed:    atomic.LoadUint64(&p.borrowFailed),
		ReturnCount:     atomic.LoadUint64(&p.returnCount),
		Created:         atomic.LoadUint64(&p.created),
		Destroyed:       atomic.LoadUint64(&p.destroyed),
		ValidationFails: atomic.LoadUint64(&p.validateFail),
		Closed:          p.closed,
	}
}
