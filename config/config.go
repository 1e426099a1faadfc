// Package config loads and validates the service configuration from
// YAML, with environment variable overrides for deployment-specific
// settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
	"github.com/mathonsunday/agentic-ui-lab-sub001/interrupt"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" json:"server"`
	Session SessionConfig `yaml:"session" json:"session"`
	Stream  StreamConfig  `yaml:"stream" json:"stream"`
	Retry   RetryConfig   `yaml:"retry" json:"retry"`
	Client  ClientConfig  `yaml:"client" json:"client"`
	NATS    NATSConfig    `yaml:"nats" json:"nats"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	ListenAddr        string   `yaml:"listen_addr" json:"listen_addr"`
	PathPrefix        string   `yaml:"path_prefix" json:"path_prefix"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// SessionConfig defines session lifecycle settings.
type SessionConfig struct {
	BaselineConfidence int      `yaml:"baseline_confidence" json:"baseline_confidence"`
	IdleTimeout        Duration `yaml:"idle_timeout" json:"idle_timeout"`
	PruneInterval      Duration `yaml:"prune_interval" json:"prune_interval"`
}

// StreamConfig defines producer pacing.
type StreamConfig struct {
	ChunkSize    int      `yaml:"chunk_size" json:"chunk_size"`
	ChunkDelay   Duration `yaml:"chunk_delay" json:"chunk_delay"`
	EmitAnalysis bool     `yaml:"emit_analysis" json:"emit_analysis"`
}

// RetryConfig defines the client reconnection schedule.
type RetryConfig struct {
	MaxAttempts  int      `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64  `yaml:"multiplier" json:"multiplier"`
}

// ClientConfig defines consumer-side behavior.
type ClientConfig struct {
	DedupStateDeltas bool `yaml:"dedup_state_deltas" json:"dedup_state_deltas"`
}

// NATSConfig defines the optional envelope fan-out bus. An empty URL
// disables publishing.
type NATSConfig struct {
	URL string `yaml:"url" json:"url"`
}

// LoggingConfig defines log output.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug | info | warn | error
	Format string `yaml:"format" json:"format"` // json | text
}

// MetricsConfig defines the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:        ":8080",
			PathPrefix:        "/v1",
			ReadHeaderTimeout: Duration(5 * time.Second),
			ShutdownTimeout:   Duration(10 * time.Second),
		},
		Session: SessionConfig{
			BaselineConfidence: 50,
			IdleTimeout:        Duration(30 * time.Minute),
			PruneInterval:      Duration(5 * time.Minute),
		},
		Stream: StreamConfig{
			ChunkSize:  24,
			ChunkDelay: Duration(30 * time.Millisecond),
		},
		Retry: RetryConfig{
			MaxAttempts:  4,
			InitialDelay: Duration(500 * time.Millisecond),
			MaxDelay:     Duration(8 * time.Second),
			Multiplier:   2.0,
		},
		Client: ClientConfig{
			DedupStateDeltas: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads the YAML file at path, applies environment overrides, and
// validates the result. An empty path yields the defaults (still subject
// to overrides and validation).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "config", "Load", "read "+path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "parse "+path)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies STREAMD_* environment variables on top of
// file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("STREAMD_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("STREAMD_PATH_PREFIX"); v != "" {
		c.Server.PathPrefix = v
	}
	if v := os.Getenv("STREAMD_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("STREAMD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STREAMD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("STREAMD_BASELINE_CONFIDENCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.BaselineConfidence = n
		}
	}
	if v := os.Getenv("STREAMD_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
}

// Validate checks the configuration for internally inconsistent or
// out-of-range values.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return invalid("server.listen_addr cannot be empty")
	}
	if c.Session.BaselineConfidence < interrupt.ConfidenceMin || c.Session.BaselineConfidence > interrupt.ConfidenceMax {
		return invalid(fmt.Sprintf("session.baseline_confidence %d outside [%d,%d]",
			c.Session.BaselineConfidence, interrupt.ConfidenceMin, interrupt.ConfidenceMax))
	}
	if c.Session.IdleTimeout <= 0 {
		return invalid("session.idle_timeout must be positive")
	}
	if c.Stream.ChunkSize <= 0 {
		return invalid("stream.chunk_size must be positive")
	}
	if c.Stream.ChunkDelay < 0 {
		return invalid("stream.chunk_delay cannot be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return invalid("retry.max_attempts must be at least 1")
	}
	if c.Retry.InitialDelay <= 0 {
		return invalid("retry.initial_delay must be positive")
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return invalid("retry.max_delay must be >= retry.initial_delay")
	}
	if c.Retry.Multiplier < 1 {
		return invalid("retry.multiplier must be >= 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("logging.level %q not one of debug|info|warn|error", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return invalid(fmt.Sprintf("logging.format %q not one of json|text", c.Logging.Format))
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", msg)
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// SafeConfig provides thread-safe access to a live configuration.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig wraps cfg for concurrent access.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return invalid("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
