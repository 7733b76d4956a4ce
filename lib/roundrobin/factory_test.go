package roundrobin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/shardpool/rrpool/lib/errors"
	"github.com/shardpool/rrpool/lib/metrics"
	"github.com/shardpool/rrpool/lib/resilience"
	"github.com/shardpool/rrpool/lib/shard"
)

func newTestFactory(dialer *fakeDialer, cfg FactoryConfig, shards ...shard.Endpoint) *Factory {
	return NewFactory(shard.NewAssigner(shards...), dialer, cfg)
}

func TestFactoryCreateRotatesShards(t *testing.T) {
	shards := testShards(3)
	f := newTestFactory(newFakeDialer(), DefaultFactoryConfig(), shards...)

	seen := make(map[uint64]bool)
	for i := 0; i < 7; i++ {
		obj, err := f.Create(context.Background())
		require.NoError(t, err)

		c := obj.(*Conn)
		require.Equal(t, shards[i%3], c.Endpoint(), "create %d", i)
		require.False(t, seen[c.ID()], "duplicate id %d", c.ID())
		seen[c.ID()] = true
		require.False(t, c.CreatedAt().IsZero())
	}
}

func TestFactoryCreateAuthenticatesOnlyWithCredential(t *testing.T) {
	dialer := newFakeDialer()
	open := shard.NewEndpoint("10.0.0.1", 6379, "")
	locked := shard.NewEndpoint("10.0.0.2", 6379, "s3cret")
	f := newTestFactory(dialer, DefaultFactoryConfig(), open, locked)

	_, err := f.Create(context.Background())
	require.NoError(t, err)
	_, err = f.Create(context.Background())
	require.NoError(t, err)

	clients := dialer.dialed()
	require.Len(t, clients, 2)
	require.Equal(t, []string{"connect"}, clients[0].callLog())
	require.Equal(t, []string{"connect", "auth"}, clients[1].callLog())
	require.Equal(t, "s3cret", clients[1].credential)
}

func TestFactoryCreateEmptyShardSet(t *testing.T) {
	dialer := newFakeDialer()
	f := newTestFactory(dialer, DefaultFactoryConfig())

	_, err := f.Create(context.Background())
	require.ErrorIs(t, err, apperrors.ErrEmptyShardSet)
	require.ErrorIs(t, err, shard.ErrEmptyShardSet)
	require.Empty(t, dialer.dialed())
}

func TestFactoryCreateConnectFailure(t *testing.T) {
	dialer := newFakeDialer()
	shards := testShards(1)
	refused := errors.New("connection refused")
	dialer.failConnect(shards[0].Addr(), refused)
	f := newTestFactory(dialer, DefaultFactoryConfig(), shards...)

	before := metrics.CreateFailures.Value()
	_, err := f.Create(context.Background())
	require.ErrorIs(t, err, apperrors.ErrConnectionSetup)
	require.ErrorIs(t, err, refused)
	require.Equal(t, apperrors.CodeConnectionSetup, apperrors.CodeOf(err))
	require.Greater(t, metrics.CreateFailures.Value(), before)

	clients := dialer.dialed()
	require.Len(t, clients, 1)
	require.Equal(t, 1, clients[0].disconnects, "failed setup must release the transport")
}

func TestFactoryCreateAuthFailure(t *testing.T) {
	dialer := newFakeDialer()
	locked := shard.NewEndpoint("10.0.0.1", 6379, "wrong")
	wrongpass := errors.New("WRONGPASS invalid username-password pair")
	dialer.authErr[locked.Addr()] = wrongpass
	f := newTestFactory(dialer, DefaultFactoryConfig(), locked)

	_, err := f.Create(context.Background())
	require.ErrorIs(t, err, apperrors.ErrConnectionSetup)
	require.ErrorIs(t, err, wrongpass)
	require.Equal(t, []string{"connect", "auth", "disconnect"}, dialer.dialed()[0].callLog())
}

func TestFactoryCreateFailureStillAdvancesRotation(t *testing.T) {
	dialer := newFakeDialer()
	shards := testShards(2)
	dialer.failConnect(shards[0].Addr(), errors.New("connection refused"))
	f := newTestFactory(dialer, DefaultFactoryConfig(), shards...)

	_, err := f.Create(context.Background())
	require.Error(t, err)

	obj, err := f.Create(context.Background())
	require.NoError(t, err)
	require.Equal(t, shards[1], obj.(*Conn).Endpoint())
}

func TestFactoryValidate(t *testing.T) {
	f := newTestFactory(newFakeDialer(), DefaultFactoryConfig(), testShards(1)...)
	ctx := context.Background()

	obj, err := f.Create(ctx)
	require.NoError(t, err)
	c := obj.(*Conn)
	fc := c.Client().(*fakeClient)

	require.True(t, f.Validate(ctx, c))

	fc.mu.Lock()
	fc.pingReply = "LOADING"
	fc.mu.Unlock()
	require.False(t, f.Validate(ctx, c), "only PONG counts as live")

	fc.mu.Lock()
	fc.pingReply = ""
	fc.mu.Unlock()
	fc.kill()
	before := metrics.ValidationFailures.Value()
	require.False(t, f.Validate(ctx, c))
	require.Greater(t, metrics.ValidationFailures.Value(), before)
}

func TestFactoryRecordsPerShardSeries(t *testing.T) {
	dialer := newFakeDialer()
	up := shard.NewEndpoint("10.0.9.1", 7001, "")
	down := shard.NewEndpoint("10.0.9.2", 7002, "")
	dialer.failConnect(down.Addr(), errConnReset)
	f := newTestFactory(dialer, DefaultFactoryConfig(), up, down)
	ctx := context.Background()

	var live *Conn
	for i := 0; i < 4; i++ {
		obj, err := f.Create(ctx)
		if i%2 == 1 {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		live = obj.(*Conn)
	}

	require.EqualValues(t, 2, metrics.ShardConnectionsCreated.Value(up.Addr()))
	require.EqualValues(t, 0, metrics.ShardConnectionsCreated.Value(down.Addr()))
	require.EqualValues(t, 2, metrics.ShardCreateFailures.Value(down.Addr()))
	require.EqualValues(t, 0, metrics.ShardCreateFailures.Value(up.Addr()))

	live.Client().(*fakeClient).kill()
	require.False(t, f.Validate(ctx, live))
	require.EqualValues(t, 1, metrics.ShardValidationFailures.Value(up.Addr()))
	require.Contains(t, metrics.Expose(), `rrpool_shard_create_failures_total{shard="10.0.9.2:7002"} 2`)
}

func TestFactoryValidateForeignObject(t *testing.T) {
	f := newTestFactory(newFakeDialer(), DefaultFactoryConfig(), testShards(1)...)

	require.False(t, f.Validate(context.Background(), nil))
	require.False(t, f.Validate(context.Background(), (*Conn)(nil)))
}

func TestFactoryDestroy(t *testing.T) {
	f := newTestFactory(newFakeDialer(), DefaultFactoryConfig(), testShards(1)...)

	obj, err := f.Create(context.Background())
	require.NoError(t, err)
	fc := obj.(*Conn).Client().(*fakeClient)

	before := metrics.ConnectionsDestroyed.Value()
	f.Destroy(obj)
	require.Equal(t, []string{"connect", "quit", "disconnect"}, fc.callLog())
	require.Greater(t, metrics.ConnectionsDestroyed.Value(), before)
}

func TestFactoryDestroyQuitFailure(t *testing.T) {
	f := newTestFactory(newFakeDialer(), DefaultFactoryConfig(), testShards(1)...)

	obj, err := f.Create(context.Background())
	require.NoError(t, err)
	fc := obj.(*Conn).Client().(*fakeClient)
	fc.mu.Lock()
	fc.quitErr = errConnReset
	fc.mu.Unlock()

	f.Destroy(obj)
	require.Equal(t, 1, fc.disconnects, "disconnect runs even when QUIT fails")
}

func TestFactoryBreakerOpensPerShard(t *testing.T) {
	dialer := newFakeDialer()
	shards := testShards(2)
	dialer.failConnect(shards[0].Addr(), errors.New("connection refused"))

	cfg := DefaultFactoryConfig()
	cfg.BreakerEnabled = true
	cfg.Breaker = resilience.BreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
		MaxHalfOpen:      1,
	}
	f := newTestFactory(dialer, cfg, shards...)
	ctx := context.Background()

	// Rotation alternates: shard0 fails, shard1 succeeds.
	for i := 0; i < 4; i++ {
		_, err := f.Create(ctx)
		if i%2 == 0 {
			require.ErrorIs(t, err, apperrors.ErrConnectionSetup)
		} else {
			require.NoError(t, err)
		}
	}

	dialedBefore := len(dialer.dialed())
	_, err := f.Create(ctx)
	require.ErrorIs(t, err, apperrors.ErrCircuitOpen)
	require.ErrorIs(t, err, apperrors.ErrConnectionSetup)
	require.Len(t, dialer.dialed(), dialedBefore, "an open circuit must not dial")

	_, err = f.Create(ctx)
	require.NoError(t, err, "healthy shard is unaffected")

	stats := f.Breakers()
	require.Len(t, stats, 2)
	states := map[string]string{}
	for _, s := range stats {
		states[s.Name] = s.State
	}
	require.Equal(t, "open", states[shards[0].Addr()])
	require.Equal(t, "closed", states[shards[1].Addr()])
}

func TestFactoryBreakersDisabled(t *testing.T) {
	f := newTestFactory(newFakeDialer(), DefaultFactoryConfig(), testShards(1)...)
	require.Nil(t, f.Breakers())
}

func TestFactoryCreateRateLimited(t *testing.T) {
	dialer := newFakeDialer()
	cfg := DefaultFactoryConfig()
	cfg.CreateRate = 0.1
	cfg.CreateBurst = 1
	cfg.ConnectTimeout = 50 * time.Millisecond
	f := newTestFactory(dialer, cfg, testShards(2)...)

	_, err := f.Create(context.Background())
	require.NoError(t, err)

	before := metrics.CreateThrottled.Value()
	_, err = f.Create(context.Background())
	require.ErrorIs(t, err, apperrors.ErrConnectionSetup)
	require.Greater(t, metrics.CreateThrottled.Value(), before)
	require.Len(t, dialer.dialed(), 1, "throttled create must not dial")
}

func TestNewFactoryDefaults(t *testing.T) {
	f := NewFactory(shard.NewAssigner(), newFakeDialer(), FactoryConfig{})

	def := DefaultFactoryConfig()
	require.Equal(t, def.ConnectTimeout, f.cfg.ConnectTimeout)
	require.Equal(t, def.ValidateTimeout, f.cfg.ValidateTimeout)
	require.Equal(t, def.QuitTimeout, f.cfg.QuitTimeout)
	require.Nil(t, f.limiter)
	require.Nil(t, f.breakers)
}
