package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dyluth/murdash/pkg/model"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up in the working directory
const DefaultFile = "murdash.yml"

// ModeAuto probes for a local daemon and falls back to demo
const ModeAuto = "auto"

// Defaults applied by Validate
const (
	DefaultLocalURL       = "http://localhost:3847"
	DefaultCloudURL       = "https://mur-server.fly.dev"
	DefaultCommanderURL   = "http://localhost:3939"
	DefaultReconnectDelay = 5 * time.Second
	DefaultHealthTimeout  = 2 * time.Second
	DefaultRelayChannel   = "murdash:events"
	DefaultLogLevel       = "info"
)

// Config represents the top-level murdash.yml configuration
type Config struct {
	Version   string           `yaml:"version"`
	Mode      string           `yaml:"mode,omitempty"` // auto, demo, local or cloud
	Endpoints *EndpointsConfig `yaml:"endpoints,omitempty"`
	Realtime  *RealtimeConfig  `yaml:"realtime,omitempty"`
	Health    *HealthConfig    `yaml:"health,omitempty"`
	Relay     *RelayConfig     `yaml:"relay,omitempty"`
	Log       *LogConfig       `yaml:"log,omitempty"`
}

// EndpointsConfig holds the base URLs of every backend murdash can talk to
type EndpointsConfig struct {
	Local     string `yaml:"local,omitempty"`
	Cloud     string `yaml:"cloud,omitempty"`
	Commander string `yaml:"commander,omitempty"`
}

// RealtimeConfig specifies event stream behavior
type RealtimeConfig struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay,omitempty"`
}

// HealthConfig specifies backend detection behavior
type HealthConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// RelayConfig specifies the optional Redis event relay. An empty RedisURL disables it.
type RelayConfig struct {
	RedisURL string `yaml:"redis_url,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// LogConfig specifies log level and an optional rotated log file
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	File  string `yaml:"file,omitempty"`
}

// Overrides are environment variables that take precedence over the file,
// e.g. MURDASH_MODE or MURDASH_LOCAL_URL. Unset variables leave the file value alone.
type Overrides struct {
	Mode           string
	LocalURL       string        `split_words:"true"`
	CloudURL       string        `split_words:"true"`
	CommanderURL   string        `split_words:"true"`
	ReconnectDelay time.Duration `split_words:"true"`
	HealthTimeout  time.Duration `split_words:"true"`
	RedisURL       string        `split_words:"true"`
	RelayChannel   string        `split_words:"true"`
	LogLevel       string        `split_words:"true"`
	LogFile        string        `split_words:"true"`
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	c := &Config{Version: "1.0", Mode: ModeAuto}
	_ = c.Validate()
	return c
}

// Validate performs strict validation on the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.Mode != ModeAuto {
		if _, err := model.ParseDataSource(c.Mode); err != nil {
			return fmt.Errorf("invalid mode: %s (must be 'auto', 'demo', 'local' or 'cloud')", c.Mode)
		}
	}

	if c.Endpoints == nil {
		c.Endpoints = &EndpointsConfig{}
	}
	if c.Endpoints.Local == "" {
		c.Endpoints.Local = DefaultLocalURL
	}
	if c.Endpoints.Cloud == "" {
		c.Endpoints.Cloud = DefaultCloudURL
	}
	if c.Endpoints.Commander == "" {
		c.Endpoints.Commander = DefaultCommanderURL
	}
	for name, raw := range map[string]string{
		"local":     c.Endpoints.Local,
		"cloud":     c.Endpoints.Cloud,
		"commander": c.Endpoints.Commander,
	} {
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("endpoints.%s: %w", name, err)
		}
	}

	if c.Realtime == nil {
		c.Realtime = &RealtimeConfig{}
	}
	if c.Realtime.ReconnectDelay == 0 {
		c.Realtime.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Realtime.ReconnectDelay < 0 {
		return fmt.Errorf("realtime.reconnect_delay must be positive, got %s", c.Realtime.ReconnectDelay)
	}

	if c.Health == nil {
		c.Health = &HealthConfig{}
	}
	if c.Health.Timeout == 0 {
		c.Health.Timeout = DefaultHealthTimeout
	}
	if c.Health.Timeout < 0 {
		return fmt.Errorf("health.timeout must be positive, got %s", c.Health.Timeout)
	}

	if c.Relay == nil {
		c.Relay = &RelayConfig{}
	}
	if c.Relay.Channel == "" {
		c.Relay.Channel = DefaultRelayChannel
	}
	if c.Relay.RedisURL != "" {
		u, err := url.Parse(c.Relay.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("relay.redis_url must be a redis:// or rediss:// URL, got %q", c.Relay.RedisURL)
		}
	}

	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %s", c.Log.Level)
	}

	return nil
}

// IsAuto reports whether the backend should be detected rather than fixed.
func (c *Config) IsAuto() bool {
	return c.Mode == ModeAuto
}

// DataSource returns the fixed mode. Only meaningful when IsAuto is false.
func (c *Config) DataSource() model.DataSource {
	ds, err := model.ParseDataSource(c.Mode)
	if err != nil {
		return model.DataSourceDemo
	}
	return ds
}

// Apply copies every set override onto the configuration.
func (c *Config) Apply(o Overrides) {
	if c.Endpoints == nil {
		c.Endpoints = &EndpointsConfig{}
	}
	if c.Realtime == nil {
		c.Realtime = &RealtimeConfig{}
	}
	if c.Health == nil {
		c.Health = &HealthConfig{}
	}
	if c.Relay == nil {
		c.Relay = &RelayConfig{}
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}

	setString(&c.Mode, o.Mode)
	setString(&c.Endpoints.Local, o.LocalURL)
	setString(&c.Endpoints.Cloud, o.CloudURL)
	setString(&c.Endpoints.Commander, o.CommanderURL)
	setString(&c.Relay.RedisURL, o.RedisURL)
	setString(&c.Relay.Channel, o.RelayChannel)
	setString(&c.Log.Level, o.LogLevel)
	setString(&c.Log.File, o.LogFile)
	if o.ReconnectDelay != 0 {
		c.Realtime.ReconnectDelay = o.ReconnectDelay
	}
	if o.HealthTimeout != 0 {
		c.Health.Timeout = o.HealthTimeout
	}
}

// Load reads murdash.yml from the specified path, applies MURDASH_* environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		config.Version = "1.0"
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	var overrides Overrides
	if err := envconfig.Process("murdash", &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	config.Apply(overrides)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadDotEnv loads environment variables from the given .env files.
// Missing files are skipped; variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q (must be http:// or https://)", raw)
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
