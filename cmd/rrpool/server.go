package main

import (
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/shardpool/rrpool/lib/metrics"
	"github.com/shardpool/rrpool/lib/pool"
	"github.com/shardpool/rrpool/lib/resilience"
	"github.com/shardpool/rrpool/lib/shard"
	"github.com/shardpool/rrpool/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// statsSource is the part of roundrobin.Pool the HTTP endpoints read.
type statsSource interface {
	Stats() pool.Stats
	Shards() []shard.Endpoint
	Breakers() []resilience.BreakerStats
}

// statsResponse is the body of GET /stats.
type statsResponse struct {
	Build    version.Info              `json:"build"`
	Uptime   string                    `json:"uptime"`
	Shards   []string                  `json:"shards"`
	Pool     pool.Stats                `json:"pool"`
	Breakers []resilience.BreakerStats `json:"breakers,omitempty"`
}

// newMux serves /metrics, /stats and /healthz for src.
func newMux(src statsSource, started time.Time) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", refreshing(src, metrics.Handler()))
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		endpoints := src.Shards()
		shards := make([]string, len(endpoints))
		for i, e := range endpoints {
			// String omits the credential.
			shards[i] = e.String()
		}

		body, err := json.Marshal(statsResponse{
			Build:    version.Get(),
			Uptime:   time.Since(started).Round(time.Second).String(),
			Shards:   shards,
			Pool:     src.Stats(),
			Breakers: src.Breakers(),
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if src.Stats().Closed {
			http.Error(w, "pool closed", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})
	return mux
}

// refreshing updates the pool gauges before delegating to next.
func refreshing(src statsSource, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		src.Stats()
		next.ServeHTTP(w, r)
	})
}
