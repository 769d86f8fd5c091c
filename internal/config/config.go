// Package config loads the dashboard backend's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/koreanvocab/vocab-dashboard/internal/telemetry"
)

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "VOCAB_DASHBOARD"

const (
	// DefaultFlashcardURL is where the local flashcard service listens
	DefaultFlashcardURL = "http://127.0.0.1:8000"

	// DefaultStatusURL is the AnkiConnect endpoint probed for the status service
	DefaultStatusURL = "http://127.0.0.1:8765"

	// DefaultTimeout bounds every outbound request
	DefaultTimeout = "30s"

	// DefaultPollInterval is the health poll period
	DefaultPollInterval = "10s"

	// DefaultSummaryLimit is the missing-word limit for dashboard summaries
	DefaultSummaryLimit = 5

	// DefaultDetailLimit is the missing-word limit for the list manager view
	DefaultDetailLimit = 10

	// DefaultAddress is the API listen address
	DefaultAddress = ":8080"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path      string
	overrides []func(*Config)
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// EvalSymlinks also cleans the path
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// WithOverride applies fn after the file is read and before validation.
// Command-line flags use it to take precedence over the file.
func WithOverride(fn func(*Config)) Option {
	return func(cfg *loaderConfig) error {
		if fn != nil {
			cfg.overrides = append(cfg.overrides, fn)
		}
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Services  ServicesConfig    `yaml:"services"`
	Health    HealthConfig      `yaml:"health"`
	Coverage  CoverageConfig    `yaml:"coverage"`
	Server    ServerConfig      `yaml:"server"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ServicesConfig locates the two remote services
type ServicesConfig struct {
	Flashcard EndpointConfig `yaml:"flashcard"`
	Status    EndpointConfig `yaml:"status"`

	// Timeout is a Go duration applied to every request, e.g. "30s"
	Timeout string `yaml:"timeout,omitempty"`
}

// EndpointConfig is the base URL of one service
type EndpointConfig struct {
	URL string `yaml:"url"`
}

// HealthConfig configures the health poller
type HealthConfig struct {
	// Interval is a Go duration between poll cycles, e.g. "10s"
	Interval string `yaml:"interval,omitempty"`
}

// CoverageConfig holds the missing-word limits used by the dashboard views.
// A limit of 0 means all missing words.
type CoverageConfig struct {
	SummaryLimit *int `yaml:"summaryLimit,omitempty"`
	DetailLimit  *int `yaml:"detailLimit,omitempty"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`

	// AllowedOrigins lists browser origins accepted on the WebSocket endpoint.
	// Empty means same-origin only.
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// Default returns a configuration for services running on their usual local ports.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig reads the optional YAML file, fills in defaults, applies overrides and validates.
// Without WithConfigPath it returns the defaults.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	config := &Config{}
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	config.applyDefaults()
	for _, override := range loaderCfg.overrides {
		override(config)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Services.Flashcard.URL == "" {
		c.Services.Flashcard.URL = DefaultFlashcardURL
	}
	if c.Services.Status.URL == "" {
		c.Services.Status.URL = DefaultStatusURL
	}
	if c.Services.Timeout == "" {
		c.Services.Timeout = DefaultTimeout
	}
	if c.Health.Interval == "" {
		c.Health.Interval = DefaultPollInterval
	}
	if c.Coverage.SummaryLimit == nil {
		c.Coverage.SummaryLimit = intPtr(DefaultSummaryLimit)
	}
	if c.Coverage.DetailLimit == nil {
		c.Coverage.DetailLimit = intPtr(DefaultDetailLimit)
	}
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
}

// GetTimeout returns the request timeout. Call only on a validated config.
func (c *Config) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Services.Timeout)
	return d
}

// GetPollInterval returns the health poll interval. Call only on a validated config.
func (c *Config) GetPollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Health.Interval)
	return d
}

// GetSummaryLimit returns the summary missing-word limit
func (c *Config) GetSummaryLimit() int {
	if c.Coverage.SummaryLimit == nil {
		return DefaultSummaryLimit
	}
	return *c.Coverage.SummaryLimit
}

// GetDetailLimit returns the detail missing-word limit
func (c *Config) GetDetailLimit() int {
	if c.Coverage.DetailLimit == nil {
		return DefaultDetailLimit
	}
	return *c.Coverage.DetailLimit
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateServiceURL(c.Services.Flashcard.URL, "services.flashcard.url"); err != nil {
		return err
	}
	if err := validateServiceURL(c.Services.Status.URL, "services.status.url"); err != nil {
		return err
	}
	if err := validatePositiveDuration(c.Services.Timeout, "services.timeout"); err != nil {
		return err
	}
	if err := validatePositiveDuration(c.Health.Interval, "health.interval"); err != nil {
		return err
	}

	if c.GetSummaryLimit() < 0 {
		return fmt.Errorf("coverage.summaryLimit: must not be negative, got %d", c.GetSummaryLimit())
	}
	if c.GetDetailLimit() < 0 {
		return fmt.Errorf("coverage.detailLimit: must not be negative, got %d", c.GetDetailLimit())
	}

	if c.Server.Address == "" {
		return errors.New("server.address: is required")
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func validateServiceURL(raw, prefix string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL: %w", prefix, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: scheme must be http or https, got %q", prefix, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: host is required", prefix)
	}
	return nil
}

func validatePositiveDuration(raw, prefix string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration format: %w", prefix, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", prefix, raw)
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
