package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shardpool/rrpool/lib/shard"
	"github.com/shardpool/rrpool/lib/testutil"
)

func newMock(t *testing.T, password string) (*testutil.MockRedis, shard.Endpoint) {
	t.Helper()
	srv, err := testutil.NewMockRedis(password)
	if err != nil {
		t.Fatalf("failed to start mock redis: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv, shard.NewEndpoint(srv.Host(), srv.Port(), password)
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRedisClientPing(t *testing.T) {
	srv, ep := newMock(t, "")
	ctx := testCtx(t)

	c := NewRedisDialer(RedisConfig{}).NewClient(ep)
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	reply, err := c.Ping(ctx)
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if reply != "PONG" {
		t.Errorf("Ping reply = %q, want PONG", reply)
	}
	if srv.Accepted() != 1 {
		t.Errorf("expected exactly one TCP connection, got %d", srv.Accepted())
	}
}

func TestRedisClientAuth(t *testing.T) {
	_, ep := newMock(t, "secret")
	ctx := testCtx(t)

	c := NewRedisClient(ep, DefaultRedisConfig())
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	if err := c.Authenticate(ctx, "secret"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if reply, err := c.Ping(ctx); err != nil || reply != "PONG" {
		t.Errorf("Ping after auth = %q, %v", reply, err)
	}
}

// go-redis opens every connection with HELLO. Against a server that wants
// AUTH first, HELLO fails with NOAUTH and the client must fall back to
// RESP2 and carry on with the explicit AUTH.
func TestRedisClientHelloRejectedWithNoAuth(t *testing.T) {
	srv, ep := newMock(t, "secret")
	ctx := testCtx(t)

	c := NewRedisClient(ep, DefaultRedisConfig())
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	if err := c.Authenticate(ctx, "secret"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if reply, err := c.Ping(ctx); err != nil || reply != "PONG" {
		t.Fatalf("Ping after auth = %q, %v", reply, err)
	}

	want := []string{"HELLO", "AUTH", "PING"}
	if got := srv.Commands(); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestRedisClientHelloUnsupported(t *testing.T) {
	srv, ep := newMock(t, "")
	ctx := testCtx(t)

	c := NewRedisClient(ep, DefaultRedisConfig())
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	if reply, err := c.Ping(ctx); err != nil || reply != "PONG" {
		t.Fatalf("Ping = %q, %v", reply, err)
	}
	if got := srv.Commands(); len(got) != 2 || got[0] != "HELLO" || got[1] != "PING" {
		t.Errorf("commands = %v, want [HELLO PING]", got)
	}
}

func TestRedisClientAuthWrongPassword(t *testing.T) {
	_, ep := newMock(t, "secret")
	ctx := testCtx(t)

	c := NewRedisClient(ep, DefaultRedisConfig())
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Disconnect()

	if err := c.Authenticate(ctx, "wrong"); err == nil {
		t.Error("expected authentication failure")
	}
}

func TestRedisClientConnectRefused(t *testing.T) {
	srv, ep := newMock(t, "")
	srv.Close()

	c := NewRedisClient(ep, RedisConfig{DialTimeout: time.Second})
	if err := c.Connect(testCtx(t)); err == nil {
		c.Disconnect()
		t.Fatal("expected connect to a closed port to fail")
	}
}

func TestRedisClientNotConnected(t *testing.T) {
	c := NewRedisClient(shard.NewEndpoint("127.0.0.1", 1, ""), DefaultRedisConfig())
	ctx := testCtx(t)

	if _, err := c.Ping(ctx); err != ErrNotConnected {
		t.Errorf("Ping before Connect = %v, want ErrNotConnected", err)
	}
	if err := c.Authenticate(ctx, "x"); err != ErrNotConnected {
		t.Errorf("Authenticate before Connect = %v, want ErrNotConnected", err)
	}
	if err := c.Quit(ctx); err != ErrNotConnected {
		t.Errorf("Quit before Connect = %v, want ErrNotConnected", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("Disconnect before Connect = %v, want nil", err)
	}
	if c.Conn() != nil {
		t.Error("Conn() before Connect should be nil")
	}
}

func TestRedisClientDoubleConnect(t *testing.T) {
	_, ep := newMock(t, "")
	ctx := testCtx(t)

	c := NewRedisClient(ep, DefaultRedisConfig())
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	if err := c.Connect(ctx); err != ErrAlreadyConnected {
		t.Errorf("second Connect = %v, want ErrAlreadyConnected", err)
	}
}

func TestRedisClientDeadTransportStaysDead(t *testing.T) {
	srv, ep := newMock(t, "")
	ctx := testCtx(t)

	c := NewRedisClient(ep, DefaultRedisConfig())
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	if _, err := c.Ping(ctx); err != nil {
		t.Fatalf("initial Ping failed: %v", err)
	}

	srv.DropAll()
	time.Sleep(20 * time.Millisecond)

	if reply, err := c.Ping(ctx); err == nil {
		t.Errorf("Ping on dropped transport = %q, want error", reply)
	}
	if srv.Accepted() != 1 {
		t.Errorf("client must not redial, server saw %d connections", srv.Accepted())
	}
}

func TestRedisClientQuitDisconnect(t *testing.T) {
	srv, ep := newMock(t, "")
	ctx := testCtx(t)

	c := NewRedisClient(ep, DefaultRedisConfig())
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Ping(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.Quit(ctx); err != nil {
		t.Errorf("Quit failed: %v", err)
	}
	if srv.CommandCount("quit") != 1 {
		t.Errorf("server saw %d QUIT, want 1", srv.CommandCount("quit"))
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("Disconnect failed: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("second Disconnect failed: %v", err)
	}
}

func TestRedisClientCommands(t *testing.T) {
	_, ep := newMock(t, "")
	ctx := testCtx(t)

	c := NewRedisClient(ep, DefaultRedisConfig())
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer c.Disconnect()

	rc := c.Conn()
	if err := rc.Set(ctx, "greeting", "hello", 0).Err(); err != nil {
		t.Fatalf("SET failed: %v", err)
	}
	got, err := rc.Get(ctx, "greeting").Result()
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("GET = %q, want hello", got)
	}
}

func TestDialerFunc(t *testing.T) {
	var seen shard.Endpoint
	d := DialerFunc(func(ep shard.Endpoint) Client {
		seen = ep
		return NewRedisClient(ep, DefaultRedisConfig())
	})

	ep := shard.NewEndpoint("h", 1, "")
	if d.NewClient(ep) == nil {
		t.Fatal("NewClient returned nil")
	}
	if seen != ep {
		t.Errorf("DialerFunc saw %v, want %v", seen, ep)
	}
}
