package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shardpool/rrpool/lib/roundrobin"
)

// probeResult is the outcome of one borrow-and-ping.
type probeResult struct {
	Shard   string
	ConnID  uint64
	Reply   string
	Latency time.Duration
	Err     error
}

// handleProbe builds a pool, borrows n connections at once, pings each, and
// prints which shard served it.
func handleProbe(logger *slog.Logger, cfg roundrobin.Config, n int) int {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Pool.MaxTotal >= 0 && cfg.Pool.MaxTotal < n {
		cfg.Pool.MaxTotal = n
	}

	p, err := roundrobin.NewRedis(ctx, cfg)
	if err != nil {
		logger.Error("failed to create pool", "error", err)
		return 1
	}
	defer p.Shutdown()

	results := probe(ctx, p, n)
	failed := printProbe(os.Stdout, results)
	if failed > 0 {
		return 1
	}
	return 0
}

// probe borrows n connections, pings each, and returns them. All n are held
// at once so that each borrow beyond the idle set creates a connection on
// the next shard.
func probe(ctx context.Context, p *roundrobin.Pool, n int) []probeResult {
	results := make([]probeResult, 0, n)
	held := make(map[*roundrobin.Conn]bool, n)

	for i := 0; i < n; i++ {
		start := time.Now()
		c, err := p.GetConnection(ctx)
		if err != nil {
			results = append(results, probeResult{Err: err, Latency: time.Since(start)})
			continue
		}

		r := probeResult{Shard: c.Endpoint().String(), ConnID: c.ID()}
		r.Reply, r.Err = c.Client().Ping(ctx)
		r.Latency = time.Since(start)
		results = append(results, r)
		held[c] = r.Err == nil
	}

	for c, ok := range held {
		if !ok {
			p.ReturnBrokenConnection(c)
			continue
		}
		p.ReturnConnection(c)
	}
	return results
}

// printProbe writes a results table and returns the number of failures.
func printProbe(w io.Writer, results []probeResult) int {
	failed := 0
	fmt.Fprintf(w, "%-4s %-24s %-6s %-10s %s\n", "#", "SHARD", "CONN", "LATENCY", "RESULT")
	for i, r := range results {
		outcome := r.Reply
		if r.Err != nil {
			outcome = "error: " + r.Err.Error()
			failed++
		}
		shard := r.Shard
		if shard == "" {
			shard = "-"
		}
		fmt.Fprintf(w, "%-4d %-24s %-6d %-10s %s\n", i+1, shard, r.ConnID, r.Latency.Round(time.Microsecond), outcome)
	}
	fmt.Fprintf(w, "\n%d probes, %d failed\n", len(results), failed)
	return failed
}
