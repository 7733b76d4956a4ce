package shard

import (
	"sync"
)

// Assigner hands out endpoints in cyclic order. Next and Add are mutually
// exclusive, so concurrent callers never observe the same cursor position.
type Assigner struct {
	mu     sync.Mutex
	shards []Endpoint
	cursor int
}

// NewAssigner creates an assigner over the given endpoints in order.
func NewAssigner(shards ...Endpoint) *Assigner {
	a := &Assigner{}
	a.shards = append(a.shards, shards...)
	return a
}

// Next returns the endpoint at the cursor and advances it, wrapping to the
// first endpoint after the last.
func (a *Assigner) Next() (Endpoint, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.shards) == 0 {
		return Endpoint{}, ErrEmptyShardSet
	}
	if a.cursor >= len(a.shards) {
		a.cursor = 0
	}

	e := a.shards[a.cursor]
	a.cursor = (a.cursor + 1) % len(a.shards)
	return e, nil
}

// Add appends endpoints and restarts the rotation from the first endpoint.
func (a *Assigner) Add(shards ...Endpoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.shards = append(a.shards, shards...)
	a.cursor = 0

	log.WithField("added", len(shards)).
		WithField("total", len(a.shards)).
		Debug("shards added, rotation reset")
}

// Len returns the number of endpoints.
func (a *Assigner) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.shards)
}

// Shards returns a copy of the endpoint list.
func (a *Assigner) Shards() []Endpoint {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Endpoint, len(a.shards))
	copy(out, a.shards)
	return out
}
