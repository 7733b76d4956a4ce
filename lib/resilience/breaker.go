package resilience

import (
	"context"
	"sync"
	"time"
)

// State is the state of a Breaker.
type State int

const (
	// StateClosed lets every attempt through.
	StateClosed State = iota
	// StateOpen rejects attempts until OpenTimeout elapses.
	StateOpen
	// StateHalfOpen lets a limited number of trial attempts through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before allowing a trial.
	OpenTimeout time.Duration
	// MaxHalfOpen caps concurrent trial attempts while half-open.
	MaxHalfOpen int
}

// DefaultBreakerConfig returns defaults tuned for connection setup, where
// a single successful dial is good evidence the shard is back.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		OpenTimeout:      5 * time.Second,
		MaxHalfOpen:      1,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = def.OpenTimeout
	}
	if c.MaxHalfOpen <= 0 {
		c.MaxHalfOpen = def.MaxHalfOpen
	}
	return c
}

// Breaker tracks consecutive setup failures against one shard.
//
//	Closed --(FailureThreshold failures)--> Open
//	Open --(OpenTimeout elapsed)--> HalfOpen
//	HalfOpen --(SuccessThreshold successes)--> Closed
//	HalfOpen --(any failure)--> Open
type Breaker struct {
	mu     sync.Mutex
	name   string
	config BreakerConfig

	state      State
	failures   int
	successes  int
	trials     int
	trips      int
	rejections int

	openedAt    time.Time
	lastFailure time.Time
	lastChange  time.Time

	onChange func(from, to State)
}

// NewBreaker creates a closed breaker. Zero config fields take defaults.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	return &Breaker{
		name:       name,
		config:     cfg.withDefaults(),
		state:      StateClosed,
		lastChange: time.Now(),
	}
}

// Name returns the breaker name, usually the shard address.
func (b *Breaker) Name() string {
	return b.name
}

// OnStateChange registers fn to run on every transition. fn runs
// synchronously with the breaker locked, so transitions are observed in
// order. It must not call back into the breaker.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// State returns the current state. An open circuit whose timeout has
// elapsed reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.config.OpenTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Allow reports whether an attempt may proceed. Every allowed attempt must
// be followed by RecordSuccess or RecordFailure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) < b.config.OpenTimeout {
			b.rejections++
			return false
		}
		b.setState(StateHalfOpen)
		b.trials = 1
		return true
	case StateHalfOpen:
		if b.trials < b.config.MaxHalfOpen {
			b.trials++
			return true
		}
		b.rejections++
		return false
	}
	return false
}

// RecordSuccess records a successful attempt.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.trials > 0 {
			b.trials--
		}
		if b.successes >= b.config.SuccessThreshold {
			b.setState(StateClosed)
		}
	}
}

// RecordFailure records a failed attempt.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

// setState transitions the breaker (caller must hold lock).
func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.lastChange = time.Now()

	switch to {
	case StateClosed:
		b.failures = 0
		b.successes = 0
		b.trials = 0
	case StateOpen:
		b.openedAt = b.lastChange
		b.successes = 0
		b.trials = 0
		b.trips++
	case StateHalfOpen:
		b.successes = 0
	}

	entry := log.WithField("shard", b.name).
		WithField("from", from.String()).
		WithField("to", to.String())
	if to == StateOpen {
		entry.Warn("shard circuit opened")
	} else {
		entry.Info("shard circuit state transition")
	}

	if b.onChange != nil {
		b.onChange(from, to)
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
// Cancellation of ctx is not counted against the shard.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.Allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	switch {
	case err == nil:
		b.RecordSuccess()
	case ctx.Err() != nil:
		b.releaseTrial()
	default:
		b.RecordFailure()
	}
	return err
}

// releaseTrial gives back a half-open slot without recording an outcome.
func (b *Breaker) releaseTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen && b.trials > 0 {
		b.trials--
	}
}

// Reset closes the circuit and clears the failure counters. Trip and
// rejection totals are kept.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
	b.failures = 0
	b.successes = 0
	b.trials = 0
	b.openedAt = time.Time{}
}

// BreakerStats is a snapshot of a Breaker.
type BreakerStats struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
	Successes   int       `json:"successes"`
	Trips       int       `json:"trips"`
	Rejections  int       `json:"rejections"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	LastChange  time.Time `json:"last_change"`
}

// Stats returns a snapshot of the breaker.
func (b *Breaker) Stats() BreakerStats {
	state := b.State()

	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		Name:        b.name,
		State:       state.String(),
		Failures:    b.failures,
		Successes:   b.successes,
		Trips:       b.trips,
		Rejections:  b.rejections,
		LastFailure: b.lastFailure,
		LastChange:  b.lastChange,
	}
}
