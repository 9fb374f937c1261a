// Package config loads the client configuration from YAML, with
// environment-variable expansion and defaults suitable for a local
// backend.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level client configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Agent      AgentConfig      `yaml:"agent"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Logging    LoggingConfig    `yaml:"logging"`
	Transcript TranscriptConfig `yaml:"transcript"`
}

// ServerConfig locates the backend.
type ServerConfig struct {
	// WebsocketURL is the realtime endpoint, e.g. "ws://localhost:5000/ws".
	WebsocketURL string `yaml:"websocket_url"`
	// APIBaseURL is the REST endpoint root, e.g. "http://localhost:5000".
	APIBaseURL string `yaml:"api_base_url"`
}

// AgentConfig identifies the local operator.
type AgentConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ReconnectConfig shapes the transport's retry behavior.
type ReconnectConfig struct {
	Attempts     int           `yaml:"attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// LoggingConfig selects slog level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TranscriptConfig controls the local transcript archive.
type TranscriptConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file, expanding environment
// variables in the raw text before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.WebsocketURL == "" {
		cfg.Server.WebsocketURL = "ws://localhost:5000/ws"
	}
	if cfg.Server.APIBaseURL == "" {
		cfg.Server.APIBaseURL = "http://localhost:5000"
	}
	if cfg.Agent.ID == "" {
		cfg.Agent.ID = "agent_001"
	}
	if cfg.Reconnect.Attempts == 0 {
		cfg.Reconnect.Attempts = 5
	}
	if cfg.Reconnect.InitialDelay == 0 {
		cfg.Reconnect.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Reconnect.MaxDelay == 0 {
		cfg.Reconnect.MaxDelay = 15 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Transcript.Path == "" {
		cfg.Transcript.Path = "relaydesk.db"
	}
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.Server.WebsocketURL, "ws://") &&
		!strings.HasPrefix(c.Server.WebsocketURL, "wss://") {
		return fmt.Errorf("server.websocket_url must be a ws:// or wss:// URL, got %q", c.Server.WebsocketURL)
	}
	if !strings.HasPrefix(c.Server.APIBaseURL, "http://") &&
		!strings.HasPrefix(c.Server.APIBaseURL, "https://") {
		return fmt.Errorf("server.api_base_url must be an http:// or https:// URL, got %q", c.Server.APIBaseURL)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}
