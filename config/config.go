// Package config provides configuration loading for the CORE valid adapter.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ssconfig "github.com/c360studio/semstreams/config"
	"gopkg.in/yaml.v3"
)

// Config represents the complete adapter configuration
type Config struct {
	NATS NATSConfig `yaml:"nats"`
	HTTP HTTPConfig `yaml:"http"`
	Log  LogConfig  `yaml:"log"`

	// Launcher is the raw job-launcher component config. Keys follow the
	// component's JSON field names (task_manager_timestamp_url, ...).
	Launcher map[string]any `yaml:"launcher,omitempty"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL; a comma-separated list is accepted
	URL string `yaml:"url"`
	// Name is the client connection name
	Name string `yaml:"name"`
}

// HTTPConfig configures the HTTP listener
type HTTPConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr"`
	// Prefix mounts the launcher endpoints under a path (default: root)
	Prefix string `yaml:"prefix"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:  "nats://localhost:4222",
			Name: "corevalid-adapter",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}
	return nil
}

// LauncherJSON returns the launcher section as component config JSON.
func (c *Config) LauncherJSON() (json.RawMessage, error) {
	if len(c.Launcher) == 0 {
		return json.RawMessage(`{}`), nil
	}
	data, err := json.Marshal(c.Launcher)
	if err != nil {
		return nil, fmt.Errorf("encode launcher config: %w", err)
	}
	return data, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// ${VAR} and ${VAR:-default} references are expanded before parsing.
func LoadFromFile(path string) (*Config, error) {
	layer, err := loadLayer(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	config.Merge(layer)
	return config, nil
}

// loadLayer parses a YAML file into a zero Config, so only the fields the
// file sets are non-zero and a Merge of it leaves other settings alone.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := ssconfig.ExpandEnvWithDefaults(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Name != "" {
		c.NATS.Name = other.NATS.Name
	}

	// HTTP
	if other.HTTP.Addr != "" {
		c.HTTP.Addr = other.HTTP.Addr
	}
	if other.HTTP.Prefix != "" {
		c.HTTP.Prefix = other.HTTP.Prefix
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}

	// Launcher keys are merged one level deep
	if len(other.Launcher) > 0 {
		if c.Launcher == nil {
			c.Launcher = make(map[string]any, len(other.Launcher))
		}
		for k, v := range other.Launcher {
			c.Launcher[k] = v
		}
	}
}
