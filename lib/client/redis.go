package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shardpool/rrpool/lib/shard"
)

// errRedial is handed to go-redis when it tries to replace a dead socket.
var errRedial = errors.New("client: transport closed, redial refused")

// RedisConfig configures Redis clients.
type RedisConfig struct {
	// DialTimeout bounds the TCP connect.
	// Default: 5 seconds
	DialTimeout time.Duration
	// ReadTimeout bounds each reply read.
	// Default: 3 seconds
	ReadTimeout time.Duration
	// WriteTimeout bounds each command write.
	// Default: 3 seconds
	WriteTimeout time.Duration
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisDialer builds RedisClients.
type RedisDialer struct {
	cfg RedisConfig
}

// NewRedisDialer returns a dialer for Redis endpoints.
func NewRedisDialer(cfg RedisConfig) *RedisDialer {
	def := DefaultRedisConfig()
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &RedisDialer{cfg: cfg}
}

// NewClient returns an unconnected client for endpoint.
func (d *RedisDialer) NewClient(endpoint shard.Endpoint) Client {
	return NewRedisClient(endpoint, d.cfg)
}

// RedisClient is a Client over exactly one TCP connection to a Redis server.
// Once the socket dies the client stays dead; go-redis is not allowed to
// redial behind the pool's back.
type RedisClient struct {
	endpoint shard.Endpoint
	cfg      RedisConfig

	mu      sync.Mutex
	netConn net.Conn
	rdb     *redis.Client
	conn    *redis.Conn
}

// NewRedisClient returns an unconnected client for endpoint.
func NewRedisClient(endpoint shard.Endpoint, cfg RedisConfig) *RedisClient {
	return &RedisClient{endpoint: endpoint, cfg: cfg}
}

// Endpoint returns the endpoint the client is bound to.
func (c *RedisClient) Endpoint() shard.Endpoint {
	return c.endpoint
}

// Connect dials the endpoint and wraps the socket in a go-redis client.
func (c *RedisClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rdb != nil {
		return ErrAlreadyConnected
	}

	d := net.Dialer{Timeout: c.cfg.DialTimeout, KeepAlive: 30 * time.Second}
	nc, err := d.DialContext(ctx, "tcp", c.endpoint.Addr())
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.endpoint, err)
	}

	var once sync.Once
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		var out net.Conn
		once.Do(func() { out = nc })
		if out == nil {
			return nil, errRedial
		}
		return out, nil
	}

	c.netConn = nc
	// go-redis still opens with HELLO 2. Servers that require AUTH reject it
	// with NOAUTH, which go-redis treats as "HELLO unsupported" and stays on
	// RESP2. DisableIdentity drops the CLIENT SETINFO calls.
	c.rdb = redis.NewClient(&redis.Options{
		Addr:            c.endpoint.Addr(),
		Dialer:          dial,
		Protocol:        2,
		DisableIdentity: true,
		PoolSize:        1,
		MaxRetries:      -1,
		DialTimeout:     c.cfg.DialTimeout,
		ReadTimeout:     c.cfg.ReadTimeout,
		WriteTimeout:    c.cfg.WriteTimeout,
	})
	c.conn = c.rdb.Conn()

	log.WithField("endpoint", c.endpoint.String()).Debug("redis transport connected")
	return nil
}

func (c *RedisClient) sticky() (*redis.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// Authenticate sends AUTH with credential.
func (c *RedisClient) Authenticate(ctx context.Context, credential string) error {
	conn, err := c.sticky()
	if err != nil {
		return err
	}
	if err := conn.Auth(ctx, credential).Err(); err != nil {
		return fmt.Errorf("auth %s: %w", c.endpoint, err)
	}
	return nil
}

// Ping sends PING and returns the status reply.
func (c *RedisClient) Ping(ctx context.Context) (string, error) {
	conn, err := c.sticky()
	if err != nil {
		return "", err
	}
	return conn.Ping(ctx).Result()
}

// Quit sends QUIT. The server closes the connection after replying.
func (c *RedisClient) Quit(ctx context.Context) error {
	conn, err := c.sticky()
	if err != nil {
		return err
	}
	cmd := redis.NewStatusCmd(ctx, "quit")
	if err := conn.Process(ctx, cmd); err != nil {
		return err
	}
	return cmd.Err()
}

// Disconnect closes the go-redis handles and the socket. It is safe to call
// more than once.
func (c *RedisClient) Disconnect() error {
	c.mu.Lock()
	conn, rdb, nc := c.conn, c.rdb, c.netConn
	c.conn, c.rdb, c.netConn = nil, nil, nil
	c.mu.Unlock()

	if rdb == nil {
		return nil
	}

	var errs []error
	for _, closer := range []func() error{conn.Close, rdb.Close, nc.Close} {
		if err := closer(); err != nil && !isClosed(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isClosed(err error) bool {
	return errors.Is(err, redis.ErrClosed) || errors.Is(err, net.ErrClosed)
}

// Conn returns the go-redis connection for issuing commands, or nil
// before Connect and after Disconnect.
func (c *RedisClient) Conn() *redis.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
