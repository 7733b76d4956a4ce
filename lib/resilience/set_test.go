package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreakerSetPerShard(t *testing.T) {
	s := NewBreakerSet(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})

	a := s.For("a:1")
	if s.For("a:1") != a {
		t.Error("For should return the same breaker for the same shard")
	}
	b := s.For("b:1")
	if a == b {
		t.Error("different shards need different breakers")
	}

	a.RecordFailure()
	if a.State() != StateOpen {
		t.Errorf("a should be open, got %v", a.State())
	}
	if b.State() != StateClosed {
		t.Errorf("b should be unaffected, got %v", b.State())
	}
}

func TestBreakerSetExecuteMetrics(t *testing.T) {
	s := NewBreakerSet(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})
	ctx := context.Background()

	rejections := CircuitRejections.Value()
	failures := CircuitFailures.Value()
	trips := CircuitTrips.Value()
	open := CircuitsOpen.Value()

	dialErr := errors.New("refused")
	if err := s.Execute(ctx, "c:1", func(context.Context) error { return dialErr }); !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}
	if err := s.Execute(ctx, "c:1", func(context.Context) error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	st := s.For("c:1").Stats()
	if st.Trips != 1 {
		t.Errorf("breaker trips = %d, want 1", st.Trips)
	}
	if st.Rejections != 1 {
		t.Errorf("breaker rejections = %d, want 1", st.Rejections)
	}

	if CircuitFailures.Value() != failures+1 {
		t.Errorf("failures = %d, want %d", CircuitFailures.Value(), failures+1)
	}
	if CircuitRejections.Value() != rejections+1 {
		t.Errorf("rejections = %d, want %d", CircuitRejections.Value(), rejections+1)
	}
	if CircuitTrips.Value() != trips+1 {
		t.Errorf("trips = %d, want %d", CircuitTrips.Value(), trips+1)
	}
	if CircuitsOpen.Value() != open+1 {
		t.Errorf("open = %d, want %d", CircuitsOpen.Value(), open+1)
	}
}

// A prior trip in another set must be fully accounted before the next
// caller looks at the totals.
func TestBreakerSetTripCountedBeforeReturn(t *testing.T) {
	first := NewBreakerSet(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})
	first.For("d:1").RecordFailure()

	trips := CircuitTrips.Value()
	second := NewBreakerSet(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})
	second.For("e:1").RecordFailure()

	time.Sleep(20 * time.Millisecond)
	if got := CircuitTrips.Value(); got != trips+1 {
		t.Errorf("trips = %d, want %d", got, trips+1)
	}
}

func TestBreakerSetOpenGaugeFollowsFlips(t *testing.T) {
	s := NewBreakerSet(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Millisecond})
	open := CircuitsOpen.Value()
	b := s.For("f:1")

	for i := 0; i < 50; i++ {
		b.RecordFailure()
		if got := CircuitsOpen.Value(); got != open+1 {
			t.Fatalf("flip %d: open = %d, want %d", i, got, open+1)
		}
		time.Sleep(2 * time.Millisecond)
		if !b.Allow() {
			t.Fatalf("flip %d: expected a half-open trial", i)
		}
		if got := CircuitsOpen.Value(); got != open {
			t.Fatalf("flip %d: open = %d after half-open, want %d", i, got, open)
		}
	}
	if got := b.Stats().Trips; got != 50 {
		t.Errorf("trips = %d, want 50", got)
	}
}

func TestBreakerSetStatsSorted(t *testing.T) {
	s := NewBreakerSet(DefaultBreakerConfig())
	s.For("z:1")
	s.For("a:1")
	s.For("m:1")

	stats := s.Stats()
	if len(stats) != 3 {
		t.Fatalf("expected 3 stats, got %d", len(stats))
	}
	if stats[0].Name != "a:1" || stats[1].Name != "m:1" || stats[2].Name != "z:1" {
		t.Errorf("stats not sorted: %v", stats)
	}
}
