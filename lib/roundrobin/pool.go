// Package roundrobin implements a connection pool over a set of Redis-like
// shards. Each new connection is bound to the next shard in rotation, so the
// pool's connections spread evenly across shards without key-based routing.
//
// A Pool combines three parts: a shard.Assigner that hands out endpoints in
// cyclic order, a Factory that connects and authenticates against them, and
// a bounded pool.Pool that tracks idle and borrowed connections.
package roundrobin

import (
	"context"
	"fmt"
	"time"

	"github.com/shardpool/rrpool/lib/client"
	apperrors "github.com/shardpool/rrpool/lib/errors"
	"github.com/shardpool/rrpool/lib/metrics"
	"github.com/shardpool/rrpool/lib/pool"
	"github.com/shardpool/rrpool/lib/resilience"
	"github.com/shardpool/rrpool/lib/shard"
	"github.com/shardpool/rrpool/lib/validation"
)

// Config configures a Pool.
type Config struct {
	// Shards is the initial shard list. It may be empty; connections can
	// be obtained once shards are added.
	Shards []shard.Endpoint
	// Pool tunes the bounded pool.
	Pool pool.Config
	// Client tunes Redis transport timeouts. Used by NewRedis only.
	Client client.RedisConfig
	// Factory tunes connection setup and teardown.
	Factory FactoryConfig
}

// DefaultConfig returns a Config with no shards and default tuning.
func DefaultConfig() Config {
	return Config{
		Pool:    pool.DefaultConfig(),
		Client:  client.DefaultRedisConfig(),
		Factory: DefaultFactoryConfig(),
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	var errs validation.Errors
	for i, s := range c.Shards {
		errs.Add(validation.Host(fmt.Sprintf("shard %d host", i), s.Host))
		errs.Add(validation.Port(fmt.Sprintf("shard %d port", i), s.Port))
	}
	errs.Add(validation.NonNegative("min idle", c.Pool.MinIdle))
	if c.Pool.MaxIdle >= 0 && c.Pool.MinIdle > c.Pool.MaxIdle {
		errs.Add(validation.NewResult("min idle", "must not exceed max idle", validation.ErrOutOfRange))
	}
	errs.Add(validation.NonNegativeFloat("create rate", c.Factory.CreateRate))
	errs.Add(checkPrewarmCapacity(c.Pool, len(c.Shards)))
	if errs.HasErrors() {
		return apperrors.Wrap(apperrors.ErrInvalidConfig, "validate config", errs.Err())
	}
	return nil
}

// checkPrewarmCapacity reports whether the pool limits leave room for one
// idle connection per shard.
func checkPrewarmCapacity(cfg pool.Config, shards int) error {
	maxTotal := cfg.MaxTotal
	if maxTotal == 0 {
		maxTotal = pool.DefaultMaxTotal
	}
	var errs validation.Errors
	errs.Add(validation.Capacity("max total", maxTotal, shards))
	errs.Add(validation.Capacity("max idle", cfg.MaxIdle, shards))
	return errs.Err()
}

// Pool hands out connections bound to shards in round-robin order.
type Pool struct {
	assigner *shard.Assigner
	factory  *Factory
	pool     *pool.Pool
}

// New creates a pool that builds clients with dialer and pre-warms one idle
// connection per configured shard. Pre-warm failures are logged, not
// returned.
func New(ctx context.Context, cfg Config, dialer client.Dialer) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	assigner := shard.NewAssigner(cfg.Shards...)
	factory := NewFactory(assigner, dialer, cfg.Factory)
	p := &Pool{
		assigner: assigner,
		factory:  factory,
		pool:     pool.New(factory, cfg.Pool),
	}
	metrics.ShardsTotal.Set(int64(assigner.Len()))

	if err := p.prewarm(ctx, len(cfg.Shards)); err != nil {
		log.WithError(err).Warn("pre-warm incomplete")
	}

	log.WithField("shards", assigner.Len()).
		WithField("max_total", cfg.Pool.MaxTotal).
		WithField("when_exhausted", cfg.Pool.WhenExhausted.String()).
		Info("round-robin pool started")
	return p, nil
}

// NewRedis creates a pool of Redis connections using cfg.Client.
func NewRedis(ctx context.Context, cfg Config) (*Pool, error) {
	return New(ctx, cfg, client.NewRedisDialer(cfg.Client))
}

// prewarm adds n idle connections. Since each creation advances the
// rotation, n consecutive adds touch n consecutive shards.
func (p *Pool) prewarm(ctx context.Context, n int) error {
	var errs []error
	for i := 0; i < n; i++ {
		if err := p.pool.AddIdle(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return apperrors.Join(errs...)
}

// GetConnection borrows a connection. Failures are reported as
// ErrPoolExhausted wrapping the cause.
func (p *Pool) GetConnection(ctx context.Context) (*Conn, error) {
	obj, err := p.pool.Borrow(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPoolExhausted, "get connection", err)
	}
	return obj.(*Conn), nil
}

// ReturnConnection gives c back to the pool for reuse.
func (p *Pool) ReturnConnection(c *Conn) error {
	if c == nil {
		return apperrors.Wrap(apperrors.ErrPoolReturn, "return connection", pool.ErrUnknownConnection)
	}
	if err := p.pool.Return(c); err != nil {
		return apperrors.Wrap(apperrors.ErrPoolReturn, "return connection", err)
	}
	return nil
}

// ReturnBrokenConnection destroys c instead of reusing it.
func (p *Pool) ReturnBrokenConnection(c *Conn) error {
	if c == nil {
		return apperrors.Wrap(apperrors.ErrPoolReturn, "return broken connection", pool.ErrUnknownConnection)
	}
	if err := p.pool.Invalidate(c); err != nil {
		return apperrors.Wrap(apperrors.ErrPoolReturn, "return broken connection", err)
	}
	return nil
}

// AddShards appends endpoints, restarts the rotation at the first shard,
// and pre-warms one idle connection per added endpoint. The endpoints stay
// added even when pre-warming fails.
func (p *Pool) AddShards(ctx context.Context, endpoints ...shard.Endpoint) error {
	if len(endpoints) == 0 {
		return nil
	}
	for i, e := range endpoints {
		if err := (Config{Shards: []shard.Endpoint{e}}).Validate(); err != nil {
			return fmt.Errorf("add shard %d: %w", i, err)
		}
	}
	if err := checkPrewarmCapacity(p.pool.Config(), p.assigner.Len()+len(endpoints)); err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidConfig, "add shards", err)
	}

	p.assigner.Add(endpoints...)
	metrics.ShardsTotal.Set(int64(p.assigner.Len()))

	log.WithField("added", len(endpoints)).
		WithField("shards", p.assigner.Len()).
		Info("shards added")
	return p.prewarm(ctx, len(endpoints))
}

// Shutdown closes the pool. Idle connections are destroyed now; borrowed
// ones are destroyed when returned.
func (p *Pool) Shutdown() error {
	if err := p.pool.Close(); err != nil {
		return apperrors.Wrap(apperrors.ErrPoolShutdown, "shutdown", err)
	}
	log.Info("round-robin pool shut down")
	return nil
}

// SetMinIdle sets the idle floor kept by the evictor.
func (p *Pool) SetMinIdle(n int) { p.pool.SetMinIdle(n) }

// SetMaxIdle sets the idle cap.
func (p *Pool) SetMaxIdle(n int) { p.pool.SetMaxIdle(n) }

// SetMaxTotal sets the live connection cap.
func (p *Pool) SetMaxTotal(n int) { p.pool.SetMaxTotal(n) }

// SetMaxWait sets how long GetConnection blocks when the pool is exhausted.
func (p *Pool) SetMaxWait(d time.Duration) { p.pool.SetMaxWait(d) }

// SetTestOnBorrow toggles the liveness probe on borrow.
func (p *Pool) SetTestOnBorrow(v bool) { p.pool.SetTestOnBorrow(v) }

// SetTestOnReturn toggles the liveness probe on return.
func (p *Pool) SetTestOnReturn(v bool) { p.pool.SetTestOnReturn(v) }

// SetWhenExhaustedGrow selects growing past MaxTotal when true and
// blocking up to MaxWait when false.
func (p *Pool) SetWhenExhaustedGrow(grow bool) {
	if grow {
		p.pool.SetWhenExhausted(pool.WhenExhaustedGrow)
		return
	}
	p.pool.SetWhenExhausted(pool.WhenExhaustedBlock)
}

// Stats returns pool statistics and refreshes the exported pool gauges.
func (p *Pool) Stats() pool.Stats {
	s := p.pool.Stats()
	pool.UpdateMetrics(s)
	metrics.ShardsTotal.Set(int64(p.assigner.Len()))
	return s
}

// Shards returns a copy of the shard list in rotation order.
func (p *Pool) Shards() []shard.Endpoint {
	return p.assigner.Shards()
}

// Breakers returns per-shard circuit breaker state.
func (p *Pool) Breakers() []resilience.BreakerStats {
	return p.factory.Breakers()
}
