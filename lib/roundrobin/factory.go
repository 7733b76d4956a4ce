package roundrobin

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/shardpool/rrpool/lib/client"
	apperrors "github.com/shardpool/rrpool/lib/errors"
	"github.com/shardpool/rrpool/lib/metrics"
	"github.com/shardpool/rrpool/lib/pool"
	"github.com/shardpool/rrpool/lib/resilience"
	"github.com/shardpool/rrpool/lib/shard"
)

// pongReply is the only liveness reply accepted by Validate.
const pongReply = "PONG"

// FactoryConfig configures connection setup and teardown.
type FactoryConfig struct {
	// ConnectTimeout bounds connect plus authenticate, including any
	// wait on the create limiter.
	// Default: 5 seconds
	ConnectTimeout time.Duration
	// ValidateTimeout bounds a liveness probe.
	// Default: 2 seconds
	ValidateTimeout time.Duration
	// QuitTimeout bounds the QUIT sent during destroy.
	// Default: 1 second
	QuitTimeout time.Duration
	// CreateRate limits new connections per second across all shards.
	// Zero disables the limiter.
	CreateRate float64
	// CreateBurst is the limiter burst. Values below 1 are treated as 1.
	CreateBurst int
	// BreakerEnabled turns on a circuit breaker per shard.
	BreakerEnabled bool
	// Breaker configures the per-shard breakers.
	Breaker resilience.BreakerConfig
}

// DefaultFactoryConfig returns a FactoryConfig with sensible defaults.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		ConnectTimeout:  5 * time.Second,
		ValidateTimeout: 2 * time.Second,
		QuitTimeout:     time.Second,
		Breaker:         resilience.DefaultBreakerConfig(),
	}
}

// Factory creates connections bound to shards in round-robin order, checks
// them with PING, and tears them down with QUIT.
type Factory struct {
	assigner *shard.Assigner
	dialer   client.Dialer
	cfg      FactoryConfig
	limiter  *rate.Limiter
	breakers *resilience.BreakerSet
	nextID   atomic.Uint64
}

// NewFactory creates a factory drawing shards from assigner.
func NewFactory(assigner *shard.Assigner, dialer client.Dialer, cfg FactoryConfig) *Factory {
	def := DefaultFactoryConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.ValidateTimeout <= 0 {
		cfg.ValidateTimeout = def.ValidateTimeout
	}
	if cfg.QuitTimeout <= 0 {
		cfg.QuitTimeout = def.QuitTimeout
	}

	f := &Factory{
		assigner: assigner,
		dialer:   dialer,
		cfg:      cfg,
	}
	if cfg.CreateRate > 0 {
		burst := cfg.CreateBurst
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(cfg.CreateRate), burst)
	}
	if cfg.BreakerEnabled {
		f.breakers = resilience.NewBreakerSet(cfg.Breaker)
	}
	return f
}

// Create binds a new connection to the next shard in rotation and
// authenticates it when the shard has a credential. Failures are reported
// as ErrConnectionSetup; an empty shard list surfaces as ErrEmptyShardSet.
func (f *Factory) Create(ctx context.Context) (pool.Connection, error) {
	endpoint, err := f.assigner.Next()
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}

	timer := metrics.NewTimer(metrics.CreateLatency)
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ConnectTimeout)
	defer cancel()

	if f.limiter != nil {
		if f.limiter.Tokens() < 1 {
			metrics.CreateThrottled.Inc()
		}
		if err := f.limiter.Wait(ctx); err != nil {
			metrics.CreateFailures.Inc()
			metrics.ShardCreateFailures.Inc(endpoint.Addr())
			return nil, apperrors.Wrap(apperrors.ErrConnectionSetup, "create connection",
				fmt.Errorf("shard %s: create limiter: %w", endpoint, err))
		}
	}

	var cl client.Client
	setup := func(ctx context.Context) error {
		cl = f.dialer.NewClient(endpoint)
		return f.setup(ctx, endpoint, cl)
	}

	if f.breakers != nil {
		err = f.breakers.Execute(ctx, endpoint.Addr(), setup)
	} else {
		err = setup(ctx)
	}
	if err != nil {
		metrics.CreateFailures.Inc()
		metrics.ShardCreateFailures.Inc(endpoint.Addr())
		log.WithField("shard", endpoint.String()).
			WithError(err).
			Warn("connection setup failed")
		return nil, apperrors.Wrap(apperrors.ErrConnectionSetup, "create connection",
			fmt.Errorf("shard %s: %w", endpoint, err))
	}

	c := &Conn{
		id:        f.nextID.Add(1),
		endpoint:  endpoint,
		client:    cl,
		createdAt: time.Now(),
	}
	metrics.ConnectionsCreated.Inc()
	metrics.ShardConnectionsCreated.Inc(endpoint.Addr())
	log.WithField("shard", endpoint.String()).
		WithField("id", c.id).
		WithField("duration", timer.ObserveDuration()).
		Debug("connection created")
	return c, nil
}

// setup connects and authenticates. On failure the client is disconnected
// before returning.
func (f *Factory) setup(ctx context.Context, endpoint shard.Endpoint, cl client.Client) error {
	if err := cl.Connect(ctx); err != nil {
		cl.Disconnect()
		return fmt.Errorf("connect: %w", err)
	}
	if endpoint.HasCredential() {
		if err := cl.Authenticate(ctx, endpoint.Credential); err != nil {
			cl.Disconnect()
			return fmt.Errorf("authenticate: %w", err)
		}
	}
	return nil
}

// Validate sends PING and reports whether the reply was exactly PONG. It
// never returns an error; every failure counts as not live.
func (f *Factory) Validate(ctx context.Context, obj pool.Connection) bool {
	c, ok := obj.(*Conn)
	if !ok || c == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.ValidateTimeout)
	defer cancel()

	reply, err := c.client.Ping(ctx)
	if err != nil || reply != pongReply {
		metrics.ValidationFailures.Inc()
		metrics.ShardValidationFailures.Inc(c.endpoint.Addr())
		log.WithField("shard", c.endpoint.String()).
			WithField("id", c.id).
			WithField("reply", reply).
			WithError(err).
			Debug("liveness probe failed")
		return false
	}
	return true
}

// Destroy sends QUIT and then closes the transport. Both steps are best
// effort; failures are logged at debug level and never returned.
func (f *Factory) Destroy(obj pool.Connection) {
	c, ok := obj.(*Conn)
	if !ok || c == nil {
		if obj != nil {
			obj.Close()
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.QuitTimeout)
	defer cancel()

	if err := c.client.Quit(ctx); err != nil {
		log.WithField("shard", c.endpoint.String()).
			WithField("id", c.id).
			WithError(err).
			Debug("quit failed during destroy")
	}
	if err := c.client.Disconnect(); err != nil {
		log.WithField("shard", c.endpoint.String()).
			WithField("id", c.id).
			WithError(err).
			Debug("disconnect failed during destroy")
	}
	metrics.ConnectionsDestroyed.Inc()
}

// Breakers returns per-shard breaker snapshots, or nil when breakers are off.
func (f *Factory) Breakers() []resilience.BreakerStats {
	if f.breakers == nil {
		return nil
	}
	return f.breakers.Stats()
}
