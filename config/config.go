// Package config provides configuration parsing for host-pulse.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the host-pulse configuration. All values are read
// once at startup and treated as immutable for the process lifetime.
type Config struct {
	// Sample holds collection cycle settings.
	Sample SampleConfig `yaml:"sample"`

	// Thresholds holds per-metric alert thresholds.
	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Alerts holds notification settings.
	Alerts AlertsConfig `yaml:"alerts"`

	// Log holds durable CSV log settings.
	Log LogConfig `yaml:"log"`

	// Web holds the HTTP dashboard settings.
	Web WebConfig `yaml:"web"`

	// Daemon holds daemon runtime settings.
	Daemon DaemonConfig `yaml:"daemon"`

	// Theme selects the terminal dashboard theme: "dark" or "light".
	Theme string `yaml:"theme"`
}

// SampleConfig holds collection cycle settings.
type SampleConfig struct {
	// Interval is a duration string (e.g. "1s") between collection cycles.
	Interval string `yaml:"interval"`
	// HistoryCapacity is the per-metric ring buffer size.
	HistoryCapacity int `yaml:"history_capacity"`
	// ProcessFilter is an optional case-insensitive substring matched
	// against process names for the filtered aggregate.
	ProcessFilter string `yaml:"process_filter"`
	// TopK is how many processes the top-by-CPU and top-by-RAM lists keep.
	TopK int `yaml:"top_k"`
}

// ThresholdConfig holds per-metric alert thresholds as percentages.
// A zero threshold disables that metric's alert.
type ThresholdConfig struct {
	// CPUPercent is the CPU usage alert threshold.
	CPUPercent float64 `yaml:"cpu_percent"`
	// RAMPercent is the memory usage alert threshold.
	RAMPercent float64 `yaml:"ram_percent"`
	// DiskPercent is the disk usage alert threshold.
	DiskPercent float64 `yaml:"disk_percent"`
}

// AlertsConfig holds notification settings.
type AlertsConfig struct {
	// Enabled controls whether breaches produce notifications at all.
	Enabled bool `yaml:"enabled"`
	// Cooldown is a duration string (e.g. "5m") for the minimum gap
	// between notifications.
	Cooldown string `yaml:"cooldown"`
	// SMTP holds email transport settings; ignored when Host is empty.
	SMTP SMTPConfig `yaml:"smtp"`
	// WebhookURL, when set, receives a JSON POST per notification.
	WebhookURL string `yaml:"webhook_url"`
}

// SMTPConfig holds email transport settings.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string `yaml:"host"`
	// Port is the SMTP server port.
	Port int `yaml:"port"`
	// Username authenticates against the server; empty skips auth.
	Username string `yaml:"username"`
	// Password authenticates against the server. Prefer the
	// HOSTPULSE_SMTP_PASSWORD environment variable over this field.
	Password string `yaml:"password"`
	// From is the envelope sender address.
	From string `yaml:"from"`
	// To lists the recipient addresses.
	To []string `yaml:"to"`
}

// LogConfig holds durable CSV log settings.
type LogConfig struct {
	// Path is the CSV log file location.
	Path string `yaml:"path"`
	// QueueCapacity bounds the in-memory record queue between the
	// sampler and the log writer.
	QueueCapacity int `yaml:"queue_capacity"`
}

// WebConfig holds the HTTP dashboard settings.
type WebConfig struct {
	// Enabled serves the dashboard alongside daemon mode.
	Enabled bool `yaml:"enabled"`
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
}

// DaemonConfig holds daemon runtime settings.
type DaemonConfig struct {
	// DataDir is the directory for runtime state: the PID file, the
	// health status file, and alert gate persistence.
	DataDir string `yaml:"data_dir"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Sample: SampleConfig{
			Interval:        "1s",
			HistoryCapacity: 200,
			ProcessFilter:   "",
			TopK:            20,
		},
		Thresholds: ThresholdConfig{
			CPUPercent:  90,
			RAMPercent:  90,
			DiskPercent: 95,
		},
		Alerts: AlertsConfig{
			Enabled:  false,
			Cooldown: "5m",
			SMTP: SMTPConfig{
				Port: 587,
			},
		},
		Log: LogConfig{
			Path:          "system_monitor_log.csv",
			QueueCapacity: 1000,
		},
		Web: WebConfig{
			Enabled: false,
			Listen:  ":8000",
		},
		Daemon: DaemonConfig{
			DataDir: filepath.Join(home, ".cache", "host-pulse"),
		},
		Theme: "dark",
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
// An empty path searches the standard locations; a missing file yields
// the defaults. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		applyEnvOverrides(config)
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyEnvOverrides(config)
	return config, nil
}

// findConfigFile returns the first standard config path that exists.
// Search order:
//  1. $XDG_CONFIG_HOME/host-pulse/config.yaml
//  2. ~/.config/host-pulse/config.yaml
func findConfigFile() string {
	home, _ := os.UserHomeDir()

	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		xdg = filepath.Join(home, ".config")
	}

	paths := []string{filepath.Join(xdg, "host-pulse", "config.yaml")}
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "host-pulse", "config.yaml"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// applyEnvOverrides checks environment variables and overrides config
// values. Direct env vars take precedence over _FILE variants, which
// name files holding the secret (sops-nix pattern).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOSTPULSE_SMTP_PASSWORD"); v != "" {
		cfg.Alerts.SMTP.Password = v
	} else if v := readEnvFile("HOSTPULSE_SMTP_PASSWORD_FILE"); v != "" {
		cfg.Alerts.SMTP.Password = v
	}
	if v := os.Getenv("HOSTPULSE_WEBHOOK_URL"); v != "" {
		cfg.Alerts.WebhookURL = v
	}
	if v := os.Getenv("HOSTPULSE_LISTEN"); v != "" {
		cfg.Web.Listen = v
	}
}

// readEnvFile reads the content of a file whose path is given by an
// environment variable. Returns empty string if the env var is unset or
// the file can't be read.
func readEnvFile(envVar string) string {
	path := os.Getenv(envVar)
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	// Trim trailing newline (common in secret files).
	s := string(data)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Validate checks the configuration for required fields and logical
// consistency.
func (c *Config) Validate() error {
	if c.Sample.Interval == "" {
		return fmt.Errorf("sample.interval is required")
	}
	if c.Sample.HistoryCapacity < 1 {
		return fmt.Errorf("sample.history_capacity must be at least 1, got %d", c.Sample.HistoryCapacity)
	}
	if c.Sample.TopK < 1 {
		return fmt.Errorf("sample.top_k must be at least 1, got %d", c.Sample.TopK)
	}

	for _, th := range []struct {
		name  string
		value float64
	}{
		{"thresholds.cpu_percent", c.Thresholds.CPUPercent},
		{"thresholds.ram_percent", c.Thresholds.RAMPercent},
		{"thresholds.disk_percent", c.Thresholds.DiskPercent},
	} {
		if th.value < 0 || th.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %g", th.name, th.value)
		}
	}

	if c.Alerts.Enabled {
		if c.Alerts.Cooldown == "" {
			return fmt.Errorf("alerts.cooldown is required when alerts are enabled")
		}
		if c.Alerts.SMTP.Host != "" {
			if c.Alerts.SMTP.From == "" {
				return fmt.Errorf("alerts.smtp.from is required when alerts.smtp.host is set")
			}
			if len(c.Alerts.SMTP.To) == 0 {
				return fmt.Errorf("alerts.smtp.to is required when alerts.smtp.host is set")
			}
			if c.Alerts.SMTP.Port < 1 || c.Alerts.SMTP.Port > 65535 {
				return fmt.Errorf("alerts.smtp.port must be a valid port, got %d", c.Alerts.SMTP.Port)
			}
		}
	}

	if c.Log.Path == "" {
		return fmt.Errorf("log.path is required")
	}
	if c.Log.QueueCapacity < 1 {
		return fmt.Errorf("log.queue_capacity must be at least 1, got %d", c.Log.QueueCapacity)
	}

	if c.Web.Enabled && c.Web.Listen == "" {
		return fmt.Errorf("web.listen is required when the web dashboard is enabled")
	}

	if c.Daemon.DataDir == "" {
		return fmt.Errorf("daemon.data_dir is required")
	}

	if c.Theme != "dark" && c.Theme != "light" {
		return fmt.Errorf("theme must be 'dark' or 'light', got %q", c.Theme)
	}

	return nil
}

// PIDFile returns the daemon PID file path inside DataDir.
func (c *Config) PIDFile() string {
	return filepath.Join(c.Daemon.DataDir, "host-pulse.pid")
}

// StateDir returns the directory for persisted runtime state.
func (c *Config) StateDir() string {
	return filepath.Join(c.Daemon.DataDir, "state")
}
