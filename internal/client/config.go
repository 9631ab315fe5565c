package client

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the player CLI configuration
type Config struct {
	Server *ServerConnection `hcl:"server,block"`
	Player *PlayerSettings   `hcl:"player,block"`
}

// ServerConnection contains server connection settings
type ServerConnection struct {
	Address   string `hcl:"address,optional"`
	URL       string `hcl:"url,optional"`
	WebSocket bool   `hcl:"websocket,optional"`
	Timeout   string `hcl:"timeout,optional"`
}

// PlayerSettings holds the identity used when a command omits one
type PlayerSettings struct {
	Name     string `hcl:"name,optional"`
	Password string `hcl:"password,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// DefaultConfigPath returns ~/.bigtwo.hcl, or "" if there is no home
// directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bigtwo.hcl")
}

// DefaultConfig returns default client configuration
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConnection{
			Address: "localhost:8084",
			URL:     "http://localhost:8090",
			Timeout: "10s",
		},
		Player: &PlayerSettings{
			LogLevel: "warn",
		},
	}
}

// LoadConfig loads client configuration from an HCL file. A missing file
// yields DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server == nil {
		config.Server = defaults.Server
	}
	if config.Player == nil {
		config.Player = defaults.Player
	}
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.URL == "" {
		config.Server.URL = defaults.Server.URL
	}
	if config.Server.Timeout == "" {
		config.Server.Timeout = defaults.Server.Timeout
	}
	if config.Player.LogLevel == "" {
		config.Player.LogLevel = defaults.Player.LogLevel
	}

	return &config, nil
}

// Validate validates the client configuration
func (c *Config) Validate() error {
	if c.Server.Address == "" && !c.Server.WebSocket {
		return fmt.Errorf("server address is required")
	}
	if c.Server.URL == "" && c.Server.WebSocket {
		return fmt.Errorf("server URL is required for websocket mode")
	}
	if d, err := time.ParseDuration(c.Server.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout: %q", c.Server.Timeout)
	}

	switch c.Player.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Player.LogLevel)
	}
	return nil
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.Timeout)
	return d
}

// NewClient builds a Client from the configuration.
func (c *Config) NewClient(logger *log.Logger) *Client {
	if c.Server.WebSocket {
		return New(c.Server.URL, logger, WithWebSocket(), WithTimeout(c.Timeout()))
	}
	return New(c.Server.Address, logger, WithTimeout(c.Timeout()))
}
