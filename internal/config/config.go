// Package config loads server settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/observability"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds everything cmd/server needs to start.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	// MetricsAddr serves /metrics on a dedicated listener when set. The HTTP
	// router always exposes /metrics as well.
	MetricsAddr string `yaml:"metrics_addr"`

	// Seed makes every new session reproducible. Nil means unseeded.
	Seed     *uint64 `yaml:"seed"`
	Scenario string  `yaml:"scenario"`

	MaxRunSteps     int           `yaml:"max_run_steps"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Log     LogConfig                   `yaml:"log"`
	Tracing observability.TracingConfig `yaml:"tracing"`
}

// LogConfig mirrors logging.Config for YAML.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:        ":8000",
		GRPCAddr:        ":50051",
		MaxRunSteps:     1000,
		ShutdownTimeout: 5 * time.Second,
		Log:             LogConfig{Level: "info", Format: "text"},
		Tracing:         observability.DefaultTracingConfig(),
	}
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Load reads path (defaults only when path is empty), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if cfg, err = Parse(f); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from NETSELECT_* variables (tracing included)
// and the shared LOG_LEVEL / LOG_FORMAT pair.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("NETSELECT_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := getenv("NETSELECT_GRPC_ADDR"); v != "" {
		c.GRPCAddr = v
	}
	if v := getenv("NETSELECT_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := getenv("NETSELECT_SCENARIO"); v != "" {
		c.Scenario = v
	}
	if v := getenv("NETSELECT_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: NETSELECT_SEED: %v", ErrInvalidConfig, err)
		}
		c.Seed = &seed
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	c.Tracing.ApplyEnv(getenv)
	return nil
}

// Validate checks addresses and limits.
func (c Config) Validate() error {
	for name, addr := range map[string]string{"http_addr": c.HTTPAddr, "grpc_addr": c.GRPCAddr} {
		if addr == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, name)
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("%w: metrics_addr: %v", ErrInvalidConfig, err)
		}
	}
	if c.MaxRunSteps <= 0 {
		return fmt.Errorf("%w: max_run_steps must be > 0", ErrInvalidConfig)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown_timeout must be >= 0", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Logger builds the process logger described by c.Log.
func (c Config) Logger(out io.Writer) logging.Logger {
	return logging.New(logging.Config{Level: c.Log.Level, Format: c.Log.Format, Output: out})
}
