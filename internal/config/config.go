// Package config loads the service configuration from a TOML file with
// environment overrides for deployment-specific settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ghindex/ghindex/internal/index"
)

// Config is the full service configuration.
type Config struct {
	Server    Server    `toml:"server"`
	GitHub    GitHub    `toml:"github"`
	Accounts  []Account `toml:"accounts"`
	Cache     Cache     `toml:"cache"`
	Templates Templates `toml:"templates"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Addr string `toml:"addr"`
}

// GitHub holds upstream API settings. APIURL is overridable for GitHub
// Enterprise deployments and tests.
type GitHub struct {
	APIURL string `toml:"api_url"`
}

// Account is one configured identity to scan for installable repositories.
type Account struct {
	Kind string `toml:"kind"` // "user" or "org"
	Name string `toml:"name"`
}

// Cache selects and configures the listing snapshot store.
type Cache struct {
	Backend string   `toml:"backend"` // "file", "redis", or "none"
	Dir     string   `toml:"dir"`     // file backend; empty means the default cache dir
	TTL     Duration `toml:"ttl"`
	Redis   Redis    `toml:"redis"`
}

// Redis holds connection settings for the redis cache backend.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Templates optionally overrides the built-in HTML templates with files.
type Templates struct {
	Index      string `toml:"index"`
	Repository string `toml:"repository"`
}

// Duration is a time.Duration that decodes from TOML strings like "15m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// SetDefaults fills in unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = "https://api.github.com"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "file"
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL.Duration = index.DefaultTTL
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
}

// Validate checks the configuration for problems a typo would cause.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("config: at least one [[accounts]] entry is required")
	}
	for i, acc := range c.Accounts {
		switch acc.Kind {
		case "user", "org":
		default:
			return fmt.Errorf("config: accounts[%d]: kind must be \"user\" or \"org\", got %q", i, acc.Kind)
		}
		if acc.Name == "" {
			return fmt.Errorf("config: accounts[%d]: name is required", i)
		}
	}
	switch c.Cache.Backend {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("config: cache.backend must be \"file\", \"redis\", or \"none\", got %q", c.Cache.Backend)
	}
	return nil
}

// Identities converts the configured accounts into resolver identities.
func (c *Config) Identities() []index.Identity {
	ids := make([]index.Identity, 0, len(c.Accounts))
	for _, acc := range c.Accounts {
		ids = append(ids, index.Identity{Kind: index.Kind(acc.Kind), Name: acc.Name})
	}
	return ids
}

// Load reads the config file at path, applies defaults and environment
// overrides, and validates the result.
//
// Environment overrides:
//
//	GHINDEX_ADDR        listen address
//	GHINDEX_CACHE_DIR   file cache directory
//	GHINDEX_REDIS_ADDR  redis address
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	if addr := os.Getenv("GHINDEX_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dir := os.Getenv("GHINDEX_CACHE_DIR"); dir != "" {
		cfg.Cache.Dir = dir
	}
	if addr := os.Getenv("GHINDEX_REDIS_ADDR"); addr != "" {
		cfg.Cache.Redis.Addr = addr
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
