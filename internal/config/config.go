// Package config loads the daemon configuration from an optional YAML file
// with environment variable overrides. The GitHub token is never read from
// the file; it comes from the environment only.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"

	"ghnotify/pkg/poller"
)

// ErrMissingToken is returned when no token is present in the environment.
var ErrMissingToken = errors.New("missing GitHub token: set GHNOTIFY_GITHUB_TOKEN or GITHUB_TOKEN")

// Config is the full daemon configuration.
type Config struct {
	// APIServer is the GitHub API base URL.
	APIServer string `yaml:"api_server"`

	// Format is the display template.
	Format string `yaml:"format"`

	// Interval between update cycles, as a Go duration string.
	Interval string `yaml:"interval"`

	// HideIfTotalIsZero suppresses the display while there are no
	// notifications.
	HideIfTotalIsZero bool `yaml:"hide_if_total_is_zero"`

	// MaxPages caps the pagination walk per cycle. 0 means unbounded.
	MaxPages int `yaml:"max_pages"`

	Log     LogConfig     `yaml:"log"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// RedisConfig points at an optional Redis instance for shared rate limit
// state. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	return Config{
		APIServer: poller.DefaultAPIServer,
		Format:    poller.DefaultFormat,
		Interval:  poller.DefaultInterval.String(),
		Log:       LogConfig{Level: "info"},
	}
}

// Load reads the configuration file at path (skipped when path is empty or
// the file does not exist) and then applies environment overrides. Unknown
// YAML keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Run on defaults.
		case err != nil:
			return Config{}, fmt.Errorf("open config: %w", err)
		default:
			defer f.Close()
			dec := yaml.NewDecoder(f)
			dec.KnownFields(true)
			if err := dec.Decode(&cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if _, err := cfg.PollInterval(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyEnv overlays GHNOTIFY_* environment variables on the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GHNOTIFY_API_SERVER"); v != "" {
		cfg.APIServer = v
	}
	if v := os.Getenv("GHNOTIFY_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("GHNOTIFY_INTERVAL"); v != "" {
		cfg.Interval = v
	}
	if v := os.Getenv("GHNOTIFY_HIDE_IF_TOTAL_IS_ZERO"); v != "" {
		cfg.HideIfTotalIsZero = v == "true" || v == "1"
	}
	if v := os.Getenv("GHNOTIFY_MAX_PAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPages = n
		}
	}
	if v := os.Getenv("GHNOTIFY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("GHNOTIFY_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GHNOTIFY_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// PollInterval parses the interval field.
func (c Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval %q must be positive", c.Interval)
	}
	return d, nil
}

// Token reads the GitHub token from the environment.
func Token() (string, error) {
	if v := os.Getenv("GHNOTIFY_GITHUB_TOKEN"); v != "" {
		return v, nil
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		return v, nil
	}
	return "", ErrMissingToken
}
