// Package metrics keeps the pool's counters and renders them in the
// Prometheus text exposition format. Series that belong to a single shard
// are kept in a ShardCounter keyed by the shard address.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// desc is the name and help text shared by every series kind.
type desc struct {
	name string
	help string
}

func (d desc) header(w io.Writer, kind string) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", d.name, d.help, d.name, kind)
}

// Counter is a process-wide total.
type Counter struct {
	desc
	value atomic.Uint64
}

// NewCounter registers a counter with the default registry.
func NewCounter(name, help string) *Counter {
	c := &Counter{desc: desc{name, help}}
	defaultRegistry.mustRegister(c)
	return c
}

// Inc adds one.
func (c *Counter) Inc() { c.value.Add(1) }

// Value returns the current total.
func (c *Counter) Value() uint64 { return c.value.Load() }

func (c *Counter) write(w io.Writer) {
	c.header(w, "counter")
	fmt.Fprintf(w, "%s %d\n", c.name, c.Value())
}

// Gauge is a value that is set from the current pool state.
type Gauge struct {
	desc
	value atomic.Int64
}

// NewGauge registers a gauge with the default registry.
func NewGauge(name, help string) *Gauge {
	g := &Gauge{desc: desc{name, help}}
	defaultRegistry.mustRegister(g)
	return g
}

func (g *Gauge) Set(v int64) { g.value.Store(v) }
func (g *Gauge) Inc()        { g.value.Add(1) }
func (g *Gauge) Dec()        { g.value.Add(-1) }

// Value returns the current value.
func (g *Gauge) Value() int64 { return g.value.Load() }

func (g *Gauge) write(w io.Writer) {
	g.header(w, "gauge")
	fmt.Fprintf(w, "%s %d\n", g.name, g.Value())
}

// ShardCounter is a counter with one series per shard address.
type ShardCounter struct {
	desc
	mu     sync.RWMutex
	series map[string]*atomic.Uint64
}

// NewShardCounter registers a per-shard counter with the default registry.
func NewShardCounter(name, help string) *ShardCounter {
	c := newShardCounter(name, help)
	defaultRegistry.mustRegister(c)
	return c
}

func newShardCounter(name, help string) *ShardCounter {
	return &ShardCounter{
		desc:   desc{name, help},
		series: make(map[string]*atomic.Uint64),
	}
}

// Inc adds one to the series for shard.
func (c *ShardCounter) Inc(shard string) {
	c.mu.RLock()
	v, ok := c.series[shard]
	c.mu.RUnlock()
	if !ok {
		c.mu.Lock()
		if v, ok = c.series[shard]; !ok {
			v = new(atomic.Uint64)
			c.series[shard] = v
		}
		c.mu.Unlock()
	}
	v.Add(1)
}

// Value returns the total for shard, zero if it was never incremented.
func (c *ShardCounter) Value(shard string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.series[shard]; ok {
		return v.Load()
	}
	return 0
}

// Shards returns the addresses that have a series, sorted.
func (c *ShardCounter) Shards() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.series))
	for s := range c.series {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func (c *ShardCounter) write(w io.Writer) {
	c.header(w, "counter")
	for _, s := range c.Shards() {
		fmt.Fprintf(w, "%s{shard=\"%s\"} %d\n", c.name, labelEscaper.Replace(s), c.Value(s))
	}
}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	desc
	mu      sync.Mutex
	bounds  []float64
	buckets []uint64
	sum     float64
	count   uint64
}

// NewHistogram registers a histogram with the default registry.
// bounds must be sorted ascending.
func NewHistogram(name, help string, bounds []float64) *Histogram {
	h := newHistogram(name, help, bounds)
	defaultRegistry.mustRegister(h)
	return h
}

func newHistogram(name, help string, bounds []float64) *Histogram {
	return &Histogram{
		desc:    desc{name, help},
		bounds:  bounds,
		buckets: make([]uint64, len(bounds)),
	}
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	i := sort.SearchFloat64s(h.bounds, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	if i < len(h.buckets) {
		h.buckets[i]++
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) write(w io.Writer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.header(w, "histogram")
	var cum uint64
	for i, le := range h.bounds {
		cum += h.buckets[i]
		fmt.Fprintf(w, "%s_bucket{le=\"%g\"} %d\n", h.name, le, cum)
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.count)
	fmt.Fprintf(w, "%s_sum %g\n%s_count %d\n", h.name, h.sum, h.name, h.count)
}

// DefaultLatencyBuckets are bounds in seconds for dial and borrow latency
// on a local network.
var DefaultLatencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Timer observes the time since NewTimer into a histogram.
type Timer struct {
	h     *Histogram
	start time.Time
}

func NewTimer(h *Histogram) *Timer {
	return &Timer{h: h, start: time.Now()}
}

// ObserveDuration records the elapsed seconds and returns the duration.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	if t.h != nil {
		t.h.Observe(d.Seconds())
	}
	return d
}

type series interface {
	write(w io.Writer)
}

type registry struct {
	mu     sync.RWMutex
	byName map[string]series
}

func newRegistry() *registry {
	return &registry{byName: make(map[string]series)}
}

var defaultRegistry = newRegistry()

// mustRegister panics on a duplicate name; every series is declared once
// at package init.
func (r *registry) mustRegister(s series) {
	var name string
	switch v := s.(type) {
	case *Counter:
		name = v.name
	case *Gauge:
		name = v.name
	case *ShardCounter:
		name = v.name
	case *Histogram:
		name = v.name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		panic("metrics: duplicate series " + name)
	}
	r.byName[name] = s
}

// writeTo renders every series sorted by name, separated by blank lines.
func (r *registry) writeTo(w io.Writer) {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		r.mu.RLock()
		s := r.byName[name]
		r.mu.RUnlock()
		s.write(w)
		io.WriteString(w, "\n")
	}
}

// Handler serves the default registry at a Prometheus scrape endpoint.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		defaultRegistry.writeTo(w)
	})
}

// Expose returns the default registry in text exposition format.
func Expose() string {
	var sb strings.Builder
	defaultRegistry.writeTo(&sb)
	return sb.String()
}

var (
	ShardsTotal = NewGauge("rrpool_shards_total", "Number of configured shards")

	ConnectionsCreated   = NewCounter("rrpool_connections_created_total", "Total connections created")
	ConnectionsDestroyed = NewCounter("rrpool_connections_destroyed_total", "Total connections destroyed")
	CreateFailures       = NewCounter("rrpool_connection_create_failures_total", "Total failed connection setups")
	ValidationFailures   = NewCounter("rrpool_validation_failures_total", "Total failed liveness probes")
	CreateThrottled      = NewCounter("rrpool_create_throttled_total", "Total connection setups delayed by the create limiter")

	// Per-shard breakdown of the lifecycle totals, keyed by host:port.
	ShardConnectionsCreated = NewShardCounter("rrpool_shard_connections_created_total", "Connections created per shard")
	ShardCreateFailures     = NewShardCounter("rrpool_shard_create_failures_total", "Failed connection setups per shard")
	ShardValidationFailures = NewShardCounter("rrpool_shard_validation_failures_total", "Failed liveness probes per shard")

	CreateLatency = NewHistogram("rrpool_connection_create_duration_seconds", "Time spent dialing and authenticating a connection", DefaultLatencyBuckets)

	StartTime = NewGauge("rrpool_start_time_seconds", "Unix timestamp when the pool started")
)

// RecordStartTime sets StartTime to now.
func RecordStartTime() {
	StartTime.Set(time.Now().Unix())
}
