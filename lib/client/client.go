// Package client defines the protocol client the pool drives and provides
// a Redis implementation of it.
package client

import (
	"context"
	"errors"

	"github.com/shardpool/rrpool/lib/shard"
)

var (
	// ErrNotConnected is returned when a command is issued before Connect.
	ErrNotConnected = errors.New("client: not connected")
	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = errors.New("client: already connected")
)

// Client is a single-connection protocol client bound to one endpoint.
type Client interface {
	// Connect establishes the transport.
	Connect(ctx context.Context) error
	// Authenticate presents credential to the server.
	Authenticate(ctx context.Context, credential string) error
	// Ping sends a liveness probe and returns the server's reply.
	Ping(ctx context.Context) (string, error)
	// Quit asks the server to end the session.
	Quit(ctx context.Context) error
	// Disconnect closes the transport.
	Disconnect() error
}

// Dialer builds unconnected clients for endpoints.
type Dialer interface {
	NewClient(endpoint shard.Endpoint) Client
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(endpoint shard.Endpoint) Client

// NewClient calls f(endpoint).
func (f DialerFunc) NewClient(endpoint shard.Endpoint) Client {
	return f(endpoint)
}
