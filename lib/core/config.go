// Package core loads, validates, and translates rrpool configuration files.
// Files ending in .yaml or .yml are read as YAML; anything else is TOML.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/shardpool/rrpool/lib/client"
	apperrors "github.com/shardpool/rrpool/lib/errors"
	"github.com/shardpool/rrpool/lib/pool"
	"github.com/shardpool/rrpool/lib/resilience"
	"github.com/shardpool/rrpool/lib/roundrobin"
	"github.com/shardpool/rrpool/lib/shard"
	"github.com/shardpool/rrpool/lib/validation"
)

// Default configuration values
const (
	DefaultConnectTimeout  = 5 * time.Second
	DefaultValidateTimeout = 2 * time.Second
	DefaultQuitTimeout     = time.Second
	DefaultDialTimeout     = 5 * time.Second
	DefaultReadTimeout     = 3 * time.Second
	DefaultWriteTimeout    = 3 * time.Second
	DefaultMetricsListen   = "127.0.0.1:9121"
)

// Environment variables that override file settings.
const (
	// EnvShards replaces the shard list with comma-separated
	// [password@]host:port entries.
	EnvShards = "RRPOOL_SHARDS"
	// EnvMetricsListen replaces metrics.listen.
	EnvMetricsListen = "RRPOOL_METRICS_LISTEN"
)

// Duration is a time.Duration written as a string such as "100ms" in
// configuration files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all configuration for an rrpool process.
type Config struct {
	Shards  []ShardConfig `toml:"shards" yaml:"shards"`
	Pool    PoolConfig    `toml:"pool" yaml:"pool"`
	Client  ClientConfig  `toml:"client" yaml:"client"`
	Breaker BreakerConfig `toml:"breaker" yaml:"breaker"`
	Limiter LimiterConfig `toml:"limiter" yaml:"limiter"`
	Metrics MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// ShardConfig describes one shard.
type ShardConfig struct {
	// Host is the shard hostname or IP address
	Host string `toml:"host" yaml:"host"`
	// Port is the shard TCP port
	Port int `toml:"port" yaml:"port"`
	// Password is sent with AUTH when non-empty
	Password string `toml:"password,omitempty" yaml:"password,omitempty"`
}

// PoolConfig tunes the bounded pool.
type PoolConfig struct {
	// MaxTotal caps live connections; negative means no limit
	MaxTotal int `toml:"max_total" yaml:"max_total"`
	// MaxIdle caps idle connections; negative means no limit
	MaxIdle int `toml:"max_idle" yaml:"max_idle"`
	// MinIdle is the idle floor kept by the evictor
	MinIdle int `toml:"min_idle" yaml:"min_idle"`
	// MaxWait bounds a blocked borrow
	MaxWait Duration `toml:"max_wait" yaml:"max_wait"`
	// WhenExhausted is "block", "grow", or "fail"
	WhenExhausted string `toml:"when_exhausted" yaml:"when_exhausted"`
	// LIFO serves the most recently returned connection first
	LIFO          bool `toml:"lifo" yaml:"lifo"`
	TestOnBorrow  bool `toml:"test_on_borrow" yaml:"test_on_borrow"`
	TestOnReturn  bool `toml:"test_on_return" yaml:"test_on_return"`
	TestWhileIdle bool `toml:"test_while_idle" yaml:"test_while_idle"`
	// MaxIdleTime is how long a connection may sit idle; zero disables
	MaxIdleTime Duration `toml:"max_idle_time" yaml:"max_idle_time"`
	// EvictionInterval is the evictor period; zero disables the evictor
	EvictionInterval Duration `toml:"eviction_interval" yaml:"eviction_interval"`
}

// ClientConfig holds per-connection timeouts.
type ClientConfig struct {
	ConnectTimeout  Duration `toml:"connect_timeout" yaml:"connect_timeout"`
	DialTimeout     Duration `toml:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout     Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout" yaml:"write_timeout"`
	ValidateTimeout Duration `toml:"validate_timeout" yaml:"validate_timeout"`
	QuitTimeout     Duration `toml:"quit_timeout" yaml:"quit_timeout"`
}

// BreakerConfig configures the per-shard circuit breakers.
type BreakerConfig struct {
	Enabled          bool     `toml:"enabled" yaml:"enabled"`
	FailureThreshold int      `toml:"failure_threshold" yaml:"failure_threshold"`
	SuccessThreshold int      `toml:"success_threshold" yaml:"success_threshold"`
	OpenTimeout      Duration `toml:"open_timeout" yaml:"open_timeout"`
	MaxHalfOpen      int      `toml:"max_half_open" yaml:"max_half_open"`
}

// LimiterConfig limits how fast new connections are created.
type LimiterConfig struct {
	// Rate is connections per second across all shards; zero disables
	Rate float64 `toml:"rate" yaml:"rate"`
	// Burst is the number of creations allowed at once
	Burst int `toml:"burst" yaml:"burst"`
}

// MetricsConfig contains metrics and stats HTTP settings.
type MetricsConfig struct {
	// Enabled controls whether the HTTP server is started
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// Listen is the address to bind the HTTP server to
	Listen string `toml:"listen" yaml:"listen"`
}

// DefaultConfig returns a Config with sensible defaults and no shards.
func DefaultConfig() *Config {
	breaker := resilience.DefaultBreakerConfig()

	return &Config{
		Pool: PoolConfig{
			MaxTotal:      pool.DefaultMaxTotal,
			MaxIdle:       pool.DefaultMaxIdle,
			MaxWait:       Duration(pool.DefaultMaxWait),
			WhenExhausted: pool.WhenExhaustedBlock.String(),
			MaxIdleTime:   Duration(pool.DefaultMaxIdleTime),
		},
		Client: ClientConfig{
			ConnectTimeout:  Duration(DefaultConnectTimeout),
			DialTimeout:     Duration(DefaultDialTimeout),
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			ValidateTimeout: Duration(DefaultValidateTimeout),
			QuitTimeout:     Duration(DefaultQuitTimeout),
		},
		Breaker: BreakerConfig{
			FailureThreshold: breaker.FailureThreshold,
			SuccessThreshold: breaker.SuccessThreshold,
			OpenTimeout:      Duration(breaker.OpenTimeout),
			MaxHalfOpen:      breaker.MaxHalfOpen,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  DefaultMetricsListen,
		},
	}
}

// isYAML reports whether path should be parsed as YAML.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig reads configuration from a TOML or YAML file and applies
// environment overrides. If the file doesn't exist, it returns the default
// configuration with overrides applied.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if isYAML(path) {
			err = yaml.Unmarshal(data, cfg)
		} else {
			err = toml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides settings from the environment.
func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvShards); v != "" {
		shards, err := ParseShardList(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvShards, err)
		}
		c.Shards = shards
	}
	if v := os.Getenv(EnvMetricsListen); v != "" {
		c.Metrics.Listen = v
	}
	return nil
}

// ParseShardList parses comma-separated [password@]host:port entries.
func ParseShardList(s string) ([]ShardConfig, error) {
	var shards []ShardConfig
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		e, err := shard.ParseEndpoint(part)
		if err != nil {
			return nil, err
		}
		shards = append(shards, ShardConfig{Host: e.Host, Port: e.Port, Password: e.Credential})
	}
	return shards, nil
}

// SaveConfig writes the configuration to path, as YAML or TOML by extension.
// It creates the parent directory if it doesn't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = toml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Shard passwords may be present.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func invalid(err error) error {
	return apperrors.Wrap(apperrors.ErrInvalidConfig, "validate config", err)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs validation.Errors
	for i, s := range c.Shards {
		errs.Add(validation.Host(fmt.Sprintf("shards[%d].host", i), s.Host))
		errs.Add(validation.Port(fmt.Sprintf("shards[%d].port", i), s.Port))
	}
	if _, err := pool.ParseExhaustedAction(c.Pool.WhenExhausted); err != nil {
		errs.Add(validation.NewResult("pool.when_exhausted", err.Error(), validation.ErrInvalidFormat))
	}
	errs.Add(validation.Limit("pool.max_total", c.Pool.MaxTotal))
	errs.Add(validation.NonNegative("pool.min_idle", c.Pool.MinIdle))
	if c.Pool.MaxIdle >= 0 && c.Pool.MinIdle > c.Pool.MaxIdle {
		errs.Add(validation.NewResult("pool.min_idle", "must not exceed pool.max_idle", validation.ErrOutOfRange))
	}
	errs.Add(validation.Capacity("pool.max_total", c.Pool.MaxTotal, len(c.Shards)))
	errs.Add(validation.Capacity("pool.max_idle", c.Pool.MaxIdle, len(c.Shards)))
	errs.Add(validation.NonNegativeDuration("pool.max_wait", c.Pool.MaxWait.Std()))
	errs.Add(validation.NonNegativeDuration("pool.max_idle_time", c.Pool.MaxIdleTime.Std()))
	errs.Add(validation.NonNegativeDuration("pool.eviction_interval", c.Pool.EvictionInterval.Std()))
	errs.Add(validation.NonNegativeFloat("limiter.rate", c.Limiter.Rate))
	errs.Add(validation.NonNegative("limiter.burst", c.Limiter.Burst))
	if c.Breaker.Enabled {
		errs.Add(validation.Positive("breaker.failure_threshold", c.Breaker.FailureThreshold))
	}
	if c.Metrics.Enabled {
		errs.Add(validation.HostPort("metrics.listen", c.Metrics.Listen))
	}

	if errs.HasErrors() {
		return invalid(errs.Err())
	}
	return nil
}

// Endpoints returns the configured shards as endpoints.
func (c *Config) Endpoints() []shard.Endpoint {
	out := make([]shard.Endpoint, 0, len(c.Shards))
	for _, s := range c.Shards {
		out = append(out, shard.NewEndpoint(s.Host, s.Port, s.Password))
	}
	return out
}

// ToPoolConfig translates the file configuration into a roundrobin.Config.
func (c *Config) ToPoolConfig() (roundrobin.Config, error) {
	if err := c.Validate(); err != nil {
		return roundrobin.Config{}, err
	}
	action, _ := pool.ParseExhaustedAction(c.Pool.WhenExhausted)

	return roundrobin.Config{
		Shards: c.Endpoints(),
		Pool: pool.Config{
			MaxTotal:         c.Pool.MaxTotal,
			MaxIdle:          c.Pool.MaxIdle,
			MinIdle:          c.Pool.MinIdle,
			MaxWait:          c.Pool.MaxWait.Std(),
			WhenExhausted:    action,
			LIFO:             c.Pool.LIFO,
			TestOnBorrow:     c.Pool.TestOnBorrow,
			TestOnReturn:     c.Pool.TestOnReturn,
			TestWhileIdle:    c.Pool.TestWhileIdle,
			MaxIdleTime:      c.Pool.MaxIdleTime.Std(),
			EvictionInterval: c.Pool.EvictionInterval.Std(),
		},
		Client: client.RedisConfig{
			DialTimeout:  c.Client.DialTimeout.Std(),
			ReadTimeout:  c.Client.ReadTimeout.Std(),
			WriteTimeout: c.Client.WriteTimeout.Std(),
		},
		Factory: roundrobin.FactoryConfig{
			ConnectTimeout:  c.Client.ConnectTimeout.Std(),
			ValidateTimeout: c.Client.ValidateTimeout.Std(),
			QuitTimeout:     c.Client.QuitTimeout.Std(),
			CreateRate:      c.Limiter.Rate,
			CreateBurst:     c.Limiter.Burst,
			BreakerEnabled:  c.Breaker.Enabled,
			Breaker: resilience.BreakerConfig{
				FailureThreshold: c.Breaker.FailureThreshold,
				SuccessThreshold: c.Breaker.SuccessThreshold,
				OpenTimeout:      c.Breaker.OpenTimeout.Std(),
				MaxHalfOpen:      c.Breaker.MaxHalfOpen,
			},
		},
	}, nil
}
