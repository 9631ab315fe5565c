package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/bigtwo/internal/protocol"
)

// Config represents the complete server configuration
type Config struct {
	Server    *Settings        `hcl:"server,block"`
	Listeners []ListenerConfig `hcl:"listener,block"`
	Presence  *PresenceConfig  `hcl:"presence,block"`
	Store     *StoreConfig     `hcl:"store,block"`
}

// Settings contains process-level configuration
type Settings struct {
	LogLevel    string `hcl:"log_level,optional"`
	LogFile     string `hcl:"log_file,optional"`
	HTTPAddress string `hcl:"http_address,optional"`
	MaxInflight int    `hcl:"max_inflight,optional"`
	ReadTimeout string `hcl:"read_timeout,optional"`
	// StatsFile receives the /stats snapshot on shutdown when set.
	StatsFile string `hcl:"stats_file,optional"`
}

// ListenerConfig binds a TCP address. An empty category accepts mux frames
// that name their category in the first field.
type ListenerConfig struct {
	Name     string `hcl:"name,label"`
	Address  string `hcl:"address"`
	Category string `hcl:"category,optional"`
}

// PresenceConfig holds the sweep thresholds as duration strings.
type PresenceConfig struct {
	SweepInterval string `hcl:"sweep_interval,optional"`
	IdleTimeout   string `hcl:"idle_timeout,optional"`
	LoginTimeout  string `hcl:"login_timeout,optional"`
}

// StoreConfig selects the account store.
type StoreConfig struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
}

const (
	defaultHTTPAddress   = "localhost:8090"
	defaultMaxInflight   = 4
	defaultReadTimeout   = "10s"
	defaultSweepInterval = "10s"
	defaultIdleTimeout   = "30s"
	defaultLoginTimeout  = "5s"
	defaultStoreDriver   = "sqlite"
	defaultStorePath     = "bigtwo.db"
)

// DefaultConfig mirrors the original deployment: one listener per category
// on 8080..8083 plus a mux listener on 8084.
func DefaultConfig() *Config {
	cfg := &Config{
		Listeners: []ListenerConfig{
			{Name: "login", Address: "localhost:8080", Category: string(protocol.CategoryLogin)},
			{Name: "register", Address: "localhost:8081", Category: string(protocol.CategoryRegister)},
			{Name: "lobby", Address: "localhost:8082", Category: string(protocol.CategoryLobby)},
			{Name: "game", Address: "localhost:8083", Category: string(protocol.CategoryGame)},
			{Name: "mux", Address: "localhost:8084"},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if len(cfg.Listeners) == 0 {
		cfg.Listeners = DefaultConfig().Listeners
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills absent blocks and unset fields.
func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &Settings{}
	}
	if c.Presence == nil {
		c.Presence = &PresenceConfig{}
	}
	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = defaultHTTPAddress
	}
	if c.Server.MaxInflight == 0 {
		c.Server.MaxInflight = defaultMaxInflight
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = defaultReadTimeout
	}
	if c.Presence.SweepInterval == "" {
		c.Presence.SweepInterval = defaultSweepInterval
	}
	if c.Presence.IdleTimeout == "" {
		c.Presence.IdleTimeout = defaultIdleTimeout
	}
	if c.Presence.LoginTimeout == "" {
		c.Presence.LoginTimeout = defaultLoginTimeout
	}
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	if c.Store.Path == "" && c.Store.Driver != "memory" {
		c.Store.Path = defaultStorePath
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	if c.Server.MaxInflight < 1 {
		return fmt.Errorf("max_inflight must be positive: %d", c.Server.MaxInflight)
	}
	if len(c.Listeners) == 0 {
		return fmt.Errorf("at least one listener must be configured")
	}

	seen := make(map[string]bool, len(c.Listeners))
	for _, l := range c.Listeners {
		if seen[l.Name] {
			return fmt.Errorf("listener %s: duplicate name", l.Name)
		}
		seen[l.Name] = true
		if l.Address == "" {
			return fmt.Errorf("listener %s: address is required", l.Name)
		}
		if l.Category != "" && !protocol.Category(l.Category).Valid() {
			return fmt.Errorf("listener %s: invalid category %s", l.Name, l.Category)
		}
	}

	durations := map[string]string{
		"read_timeout":   c.Server.ReadTimeout,
		"sweep_interval": c.Presence.SweepInterval,
		"idle_timeout":   c.Presence.IdleTimeout,
		"login_timeout":  c.Presence.LoginTimeout,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %s", name, value)
		}
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite", "sqlite3":
		if c.Store.Path == "" {
			return fmt.Errorf("store: sqlite requires a path")
		}
	default:
		return fmt.Errorf("store: unknown driver %s", c.Store.Driver)
	}
	return nil
}

// ReadTimeout returns the per-connection read deadline.
func (c *Config) ReadTimeout() time.Duration {
	return mustDuration(c.Server.ReadTimeout)
}

// SweepInterval returns how often the background sweeper runs.
func (c *Config) SweepInterval() time.Duration {
	return mustDuration(c.Presence.SweepInterval)
}

// IdleTimeout returns the lobby eviction threshold.
func (c *Config) IdleTimeout() time.Duration {
	return mustDuration(c.Presence.IdleTimeout)
}

// LoginTimeout returns the threshold for evicting a stale session on login.
func (c *Config) LoginTimeout() time.Duration {
	return mustDuration(c.Presence.LoginTimeout)
}

// mustDuration parses a duration already checked by Validate; invalid
// values read as zero.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
