// Package config stores persistent settings for s2800ctl: the MIDI ports
// the sampler is wired to and the exclusive channels it listens on.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the main configuration structure.
type Config struct {
	// InPort and OutPort name the sampler's MIDI ports. Empty means
	// auto-detect.
	InPort  string `json:"inPort,omitempty"`
	OutPort string `json:"outPort,omitempty"`

	// ExclusiveChannel is the SysEx channel the sampler answers on (0-15).
	ExclusiveChannel int `json:"exclusiveChannel"`

	// SDSChannel is the channel used for sample dump transfers.
	SDSChannel int `json:"sdsChannel"`

	// ReplyTimeoutMillis overrides the default reply wait when non-zero.
	ReplyTimeoutMillis int `json:"replyTimeoutMillis,omitempty"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ExclusiveChannel: 0,
		SDSChannel:       0,
	}
}

// ConfigDir returns the config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "s2800ctl"), nil
}

// ConfigPath returns the full path to config.json.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	if err := c.Validate(); err != nil {
		return err
	}

	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks channel ranges.
func (c *Config) Validate() error {
	if c.ExclusiveChannel < 0 || c.ExclusiveChannel > 15 {
		return fmt.Errorf("exclusiveChannel %d out of range 0-15", c.ExclusiveChannel)
	}
	if c.SDSChannel < 0 || c.SDSChannel > 15 {
		return fmt.Errorf("sdsChannel %d out of range 0-15", c.SDSChannel)
	}
	return nil
}
