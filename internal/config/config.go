// ABOUTME: Configuration loading and parsing for the heartbeat monitor.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete heartbeat monitor configuration.
type Config struct {
	Indexer  IndexerConfig  `yaml:"indexer"`
	Liveness LivenessConfig `yaml:"liveness"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Matrix   MatrixConfig   `yaml:"matrix"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// IndexerConfig holds the agent/session metadata source configuration.
type IndexerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// LivenessConfig holds the working-memory document store configuration.
type LivenessConfig struct {
	BaseURL   string `yaml:"base_url"`
	AuthToken string `yaml:"auth_token"`
}

// AlertsConfig holds the outbound alert channel configuration.
type AlertsConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	// Mention is prepended to down-agent alerts. Empty disables it.
	Mention string `yaml:"mention"`

	Cooldown time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	CooldownRaw string `yaml:"cooldown"`
}

// MonitorConfig holds poll cycle timing configuration.
type MonitorConfig struct {
	PollInterval time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	PollIntervalRaw string `yaml:"poll_interval"`
}

// MatrixConfig holds the command bridge configuration.
type MatrixConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Homeserver    string   `yaml:"homeserver"`
	UserID        string   `yaml:"user_id"`
	AccessToken   string   `yaml:"access_token"`
	AllowedRooms  []string `yaml:"allowed_rooms"`
	CommandPrefix string   `yaml:"command_prefix"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultCommandPrefix is used when matrix.command_prefix is not set.
const DefaultCommandPrefix = "/watchdog"

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if cfg.Matrix.CommandPrefix == "" {
		cfg.Matrix.CommandPrefix = DefaultCommandPrefix
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Indexer.Endpoint == "" {
		return fmt.Errorf("indexer.endpoint is required")
	}
	if _, err := url.Parse(c.Indexer.Endpoint); err != nil {
		return fmt.Errorf("indexer.endpoint is not a valid URL: %w", err)
	}

	if c.Liveness.BaseURL == "" {
		return fmt.Errorf("liveness.base_url is required")
	}

	// The webhook is optional: a missing alert channel degrades to local
	// logging instead of failing startup.

	if c.Matrix.Enabled {
		if c.Matrix.Homeserver == "" {
			return fmt.Errorf("matrix.homeserver is required when matrix is enabled")
		}
		if c.Matrix.UserID == "" {
			return fmt.Errorf("matrix.user_id is required when matrix is enabled")
		}
		if c.Matrix.AccessToken == "" {
			return fmt.Errorf("matrix.access_token is required when matrix is enabled")
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Monitor.PollIntervalRaw != "" {
		cfg.Monitor.PollInterval, err = time.ParseDuration(cfg.Monitor.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.Monitor.PollIntervalRaw, err)
		}
	}

	if cfg.Alerts.CooldownRaw != "" {
		cfg.Alerts.Cooldown, err = time.ParseDuration(cfg.Alerts.CooldownRaw)
		if err != nil {
			return fmt.Errorf("parsing cooldown %q: %w", cfg.Alerts.CooldownRaw, err)
		}
	}

	return nil
}
