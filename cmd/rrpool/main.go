// rrpool runs a round-robin connection pool over a set of Redis shards and
// serves its metrics and statistics over HTTP.
//
// Usage:
//
//	rrpool [flags]              Run the pool until SIGINT or SIGTERM
//	rrpool probe [N]            Borrow N connections, PING each, and report
//	rrpool init [path]          Write a default configuration file
//
// Flags:
//
//	-config string
//	    Path to configuration file (default "~/.rrpool/config.toml")
//	-shards string
//	    Comma-separated [password@]host:port list (overrides config)
//	-v
//	    Enable verbose logging
//	-version
//	    Print version and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/shardpool/rrpool/lib/core"
	"github.com/shardpool/rrpool/lib/metrics"
	"github.com/shardpool/rrpool/lib/roundrobin"
	"github.com/shardpool/rrpool/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	defaultConfigPath := filepath.Join(homeDir, ".rrpool", "config.toml")

	configPath := flag.String("config", defaultConfigPath, "Path to configuration file (.toml, .yaml or .yml)")
	shardList := flag.String("shards", "", "Comma-separated [password@]host:port list (overrides config)")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rrpool - round-robin sharded connection pool\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  rrpool [flags]            Run the pool\n")
		fmt.Fprintf(os.Stderr, "  rrpool probe [N]          Borrow N connections and PING each\n")
		fmt.Fprintf(os.Stderr, "  rrpool init [path]        Write a default configuration file\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("rrpool version %s\n", version.Full())
		return 0
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	args := flag.Args()
	if len(args) > 0 && args[0] == "init" {
		path := *configPath
		if len(args) > 1 {
			path = args[1]
		}
		return handleInit(logger, path)
	}

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	if *shardList != "" {
		shards, err := core.ParseShardList(*shardList)
		if err != nil {
			logger.Error("invalid -shards", "error", err)
			return 1
		}
		cfg.Shards = shards
	}

	poolCfg, err := cfg.ToPoolConfig()
	if err != nil {
		logger.Error("invalid config", "error", err)
		return 1
	}

	if len(args) > 0 && args[0] == "probe" {
		n := len(cfg.Shards)
		if len(args) > 1 {
			n, err = strconv.Atoi(args[1])
			if err != nil || n < 1 {
				fmt.Fprintf(os.Stderr, "probe: N must be a positive integer\n")
				return 1
			}
		}
		return handleProbe(logger, poolCfg, n)
	}
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		return 1
	}

	return serve(logger, cfg, poolCfg)
}

// serve runs the pool and the HTTP endpoints until a signal arrives.
func serve(logger *slog.Logger, cfg *core.Config, poolCfg roundrobin.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.RecordStartTime()
	started := time.Now()

	p, err := roundrobin.NewRedis(ctx, poolCfg)
	if err != nil {
		logger.Error("failed to create pool", "error", err)
		return 1
	}
	defer func() {
		if err := p.Shutdown(); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	stats := p.Stats()
	logger.Info("rrpool started",
		"version", version.Full(),
		"shards", len(poolCfg.Shards),
		"idle", stats.NumIdle)

	errCh := make(chan error, 1)
	var srv *http.Server
	if cfg.Metrics.Enabled {
		srv = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           newMux(p, started),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("serving metrics", "listen", cfg.Metrics.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("received signal, shutting down")
	case err := <-errCh:
		logger.Error("metrics server failed", "error", err)
		return 1
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	logger.Info("rrpool stopped")
	return 0
}

// handleInit writes a default configuration file.
func handleInit(logger *slog.Logger, path string) int {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Refusing to overwrite existing file %s\n", path)
		return 1
	}
	if err := core.SaveConfig(core.DefaultConfig(), path); err != nil {
		logger.Error("failed to write config", "error", err)
		return 1
	}
	fmt.Printf("Wrote default configuration to %s\n", path)
	return 0
}
