package roundrobin

import (
	"context"
	"errors"
	"sync"

	"github.com/shardpool/rrpool/lib/client"
	"github.com/shardpool/rrpool/lib/shard"
)

var errConnReset = errors.New("connection reset by peer")

// fakeClient is an in-memory client.Client that records its calls.
type fakeClient struct {
	endpoint shard.Endpoint

	mu          sync.Mutex
	connected   bool
	credential  string
	dead        bool
	pingReply   string
	connectErr  error
	authErr     error
	quitErr     error
	calls       []string
	disconnects int
}

func (c *fakeClient) record(call string) {
	c.calls = append(c.calls, call)
}

func (c *fakeClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("connect")
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeClient) Authenticate(ctx context.Context, credential string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("auth")
	if c.authErr != nil {
		return c.authErr
	}
	c.credential = credential
	return nil
}

func (c *fakeClient) Ping(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("ping")
	if !c.connected || c.dead {
		return "", errConnReset
	}
	if c.pingReply != "" {
		return c.pingReply, nil
	}
	return "PONG", nil
}

func (c *fakeClient) Quit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("quit")
	return c.quitErr
}

func (c *fakeClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("disconnect")
	c.connected = false
	c.disconnects++
	return nil
}

func (c *fakeClient) kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead = true
}

func (c *fakeClient) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// fakeDialer hands out fakeClients and injects per-shard failures.
type fakeDialer struct {
	mu         sync.Mutex
	clients    []*fakeClient
	connectErr map[string]error
	authErr    map[string]error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		connectErr: make(map[string]error),
		authErr:    make(map[string]error),
	}
}

func (d *fakeDialer) NewClient(endpoint shard.Endpoint) client.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeClient{
		endpoint:   endpoint,
		connectErr: d.connectErr[endpoint.Addr()],
		authErr:    d.authErr[endpoint.Addr()],
	}
	d.clients = append(d.clients, c)
	return c
}

func (d *fakeDialer) failConnect(addr string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectErr[addr] = err
}

func (d *fakeDialer) dialed() []*fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeClient(nil), d.clients...)
}

func testShards(n int) []shard.Endpoint {
	shards := make([]shard.Endpoint, n)
	for i := range shards {
		shards[i] = shard.NewEndpoint("10.0.0.1", 6379+i, "")
	}
	return shards
}
