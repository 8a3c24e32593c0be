// Package config provides configuration file support for vigil.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the vigil configuration.
type Config struct {
	Monitor  MonitorConfig  `yaml:"monitor"`
	Audit    AuditConfig    `yaml:"audit"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Logging  LoggingConfig  `yaml:"logging"`
	Notify   NotifyConfig   `yaml:"notify"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// MonitorConfig configures the watch filters.
type MonitorConfig struct {
	// Extensions restricts monitoring to matching file suffixes.
	// An empty list monitors every non-hidden file.
	Extensions []string `yaml:"extensions"`
}

// AuditConfig configures audit-subsystem correlation.
type AuditConfig struct {
	// Key tags the installed watch rule and scopes queries.
	Key string `yaml:"key"`
	// Window is the lookback applied when correlating an event with
	// audit records. Audit records may be flushed slightly after the
	// filesystem event fires; the window absorbs that latency at the
	// cost of occasionally matching an unrelated record.
	Window string `yaml:"window"`
	// Timeout bounds a single audit query.
	Timeout string `yaml:"timeout"`
}

// ThrottleConfig configures per-path alert rate limiting.
type ThrottleConfig struct {
	Window string `yaml:"window"`
}

// LoggingConfig configures diagnostic logging and event log rotation.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text

	// MaxLogBytes is the event log size at which it is archived.
	MaxLogBytes int64 `yaml:"max_log_bytes"`
	// KeepLogs is the number of gzip archives retained.
	KeepLogs int `yaml:"keep_logs"`
}

// NotifyConfig configures the desktop notification sink.
type NotifyConfig struct {
	Desktop bool   `yaml:"desktop"`
	Timeout string `yaml:"timeout"`
}

// WebhookConfig configures the optional HTTP alert sink.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			Extensions: []string{".txt"},
		},
		Audit: AuditConfig{
			Key:     "vigil",
			Window:  "10s",
			Timeout: "3s",
		},
		Throttle: ThrottleConfig{
			Window: "5s",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			MaxLogBytes: 8 << 20,
			KeepLogs:    3,
		},
		Notify: NotifyConfig{
			Desktop: true,
			Timeout: "2s",
		},
		Webhook: WebhookConfig{
			Enabled: false,
		},
	}
}

// Load loads configuration from <stateDir>/config.yaml.
// Returns default config if file doesn't exist.
func Load(stateDir string) (*Config, error) {
	cfg := Default()
	cfgPath := filepath.Join(stateDir, "config.yaml")

	data, err := os.ReadFile(cfgPath)
	if os.IsNotExist(err) {
		return cfg, nil // No config file is OK, use defaults
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to <stateDir>/config.yaml.
func Save(stateDir string, cfg *Config) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// AuditWindow returns the parsed correlation lookback window.
func (c *Config) AuditWindow() time.Duration {
	return parseDuration(c.Audit.Window, 10*time.Second)
}

// AuditTimeout returns the parsed audit query timeout.
func (c *Config) AuditTimeout() time.Duration {
	return parseDuration(c.Audit.Timeout, 3*time.Second)
}

// ThrottleWindow returns the parsed per-path alert window.
func (c *Config) ThrottleWindow() time.Duration {
	return parseDuration(c.Throttle.Window, 5*time.Second)
}

// NotifyTimeout returns the parsed notification dispatch timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return parseDuration(c.Notify.Timeout, 2*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
