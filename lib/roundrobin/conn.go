package roundrobin

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shardpool/rrpool/lib/client"
	"github.com/shardpool/rrpool/lib/shard"
)

// Conn is a pooled, authenticated session to one shard. A Conn is owned by
// exactly one party at a time: the pool while idle, the caller while
// borrowed.
type Conn struct {
	id        uint64
	endpoint  shard.Endpoint
	client    client.Client
	createdAt time.Time
}

// ID returns a process-unique identifier for the connection.
func (c *Conn) ID() uint64 {
	return c.id
}

// Endpoint returns the shard the connection is bound to.
func (c *Conn) Endpoint() shard.Endpoint {
	return c.endpoint
}

// Client returns the underlying protocol client.
func (c *Conn) Client() client.Client {
	return c.client
}

// CreatedAt returns when the connection was established.
func (c *Conn) CreatedAt() time.Time {
	return c.createdAt
}

// Redis returns the go-redis connection for issuing commands when the
// connection is backed by a RedisClient.
func (c *Conn) Redis() (*redis.Conn, bool) {
	rc, ok := c.client.(*client.RedisClient)
	if !ok {
		return nil, false
	}
	conn := rc.Conn()
	return conn, conn != nil
}

// Close disconnects the transport without QUIT. The pool calls Destroy on
// the factory instead; Close exists to satisfy pool.Connection.
func (c *Conn) Close() error {
	return c.client.Disconnect()
}
