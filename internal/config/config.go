// Package config loads the daemon configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds daemon configuration. All fields are optional; zero
// values fall back to defaults.
type Config struct {
	// PollIntervalMs is the monitor tick cadence in milliseconds.
	PollIntervalMs int `yaml:"poll_interval_ms"`

	// DataDir holds the rules file, journal, key and pidfile.
	DataDir string `yaml:"data_dir"`

	// RulesPath overrides the rules file location.
	RulesPath string `yaml:"rules_path"`

	// LogPath is the daemon log file. Empty logs to stderr.
	LogPath string `yaml:"log_path"`

	// Journal toggles the encrypted warning journal.
	Journal *bool `yaml:"journal"`

	// Notifications toggles desktop notifications.
	Notifications *bool `yaml:"notifications"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PollIntervalMs: 300,
		DataDir:        defaultDataDir(),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clipguard"
	}
	return filepath.Join(home, ".clipguard")
}

// Load reads the config file at path. A missing file yields the
// defaults; a malformed file is an error (silently ignoring a typo'd
// config is worse than refusing to start). Empty path means the
// default location under the data directory.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = 300
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	return c
}

// PollInterval returns the tick cadence as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// RulesFile returns the effective rules file path.
func (c Config) RulesFile() string {
	if c.RulesPath != "" {
		return c.RulesPath
	}
	return filepath.Join(c.DataDir, "rules.json")
}

// JournalEnabled reports whether warnings are journaled (default on).
func (c Config) JournalEnabled() bool {
	return c.Journal == nil || *c.Journal
}

// NotificationsEnabled reports whether desktop notifications are
// shown (default on).
func (c Config) NotificationsEnabled() bool {
	return c.Notifications == nil || *c.Notifications
}
