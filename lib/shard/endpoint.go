// Package shard describes backend endpoints and hands them out in
// round-robin order.
package shard

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	apperrors "github.com/shardpool/rrpool/lib/errors"
)

// ErrEmptyShardSet is returned by Next when no endpoints are configured.
// This is an alias to the central error definition in lib/errors.
var ErrEmptyShardSet = apperrors.ErrEmptyShardSet

// Endpoint identifies one backend server. The zero Credential means the
// server is reached without authentication.
type Endpoint struct {
	Host       string
	Port       int
	Credential string
}

// NewEndpoint returns an endpoint for host:port with an optional credential.
func NewEndpoint(host string, port int, credential string) Endpoint {
	return Endpoint{Host: host, Port: port, Credential: credential}
}

// ParseEndpoint parses "[credential@]host:port". The credential is split at
// the last '@' so it may itself contain '@'.
func ParseEndpoint(s string) (Endpoint, error) {
	var cred string
	if i := strings.LastIndex(s, "@"); i >= 0 {
		cred, s = s[:i], s[i+1:]
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: %w", s, err)
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: empty host", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: invalid port %q", s, portStr)
	}
	return Endpoint{Host: host, Port: port, Credential: cred}, nil
}

// Addr returns the dialable host:port form.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// HasCredential reports whether connections must authenticate.
func (e Endpoint) HasCredential() bool {
	return e.Credential != ""
}

// String returns host:port. The credential is never printed.
func (e Endpoint) String() string {
	return e.Addr()
}
