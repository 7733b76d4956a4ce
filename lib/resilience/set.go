package resilience

import (
	"context"
	"sort"
	"sync"
)

// BreakerSet holds one Breaker per shard, created on first use.
type BreakerSet struct {
	mu       sync.Mutex
	config   BreakerConfig
	breakers map[string]*Breaker
}

// NewBreakerSet creates an empty set whose breakers share cfg.
func NewBreakerSet(cfg BreakerConfig) *BreakerSet {
	return &BreakerSet{
		config:   cfg.withDefaults(),
		breakers: make(map[string]*Breaker),
	}
}

// For returns the breaker for name, creating it if needed.
func (s *BreakerSet) For(name string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[name]
	if !ok {
		b = NewBreaker(name, s.config)
		b.OnStateChange(metricsCallback)
		s.breakers[name] = b
	}
	return b
}

// Execute runs fn through the breaker for name and records metrics.
func (s *BreakerSet) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	err := s.For(name).Execute(ctx, fn)
	switch {
	case err == ErrCircuitOpen:
		CircuitRejections.Inc()
	case err != nil && ctx.Err() == nil:
		CircuitFailures.Inc()
	}
	return err
}

// Stats returns a snapshot of every breaker, ordered by name.
func (s *BreakerSet) Stats() []BreakerStats {
	s.mu.Lock()
	breakers := make([]*Breaker, 0, len(s.breakers))
	for _, b := range s.breakers {
		breakers = append(breakers, b)
	}
	s.mu.Unlock()

	out := make([]BreakerStats, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, b.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
