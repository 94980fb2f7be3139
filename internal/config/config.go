// Package config loads clok settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAddr is the HTTP listen address.
	DefaultAddr = ":8080"
	// DefaultDriver is the database driver used when none is configured.
	DefaultDriver = "sqlite"
	// DefaultDatabase is the SQLite file used when no URL is configured.
	DefaultDatabase = "clok.db"
	// DefaultSessionTTL is the lifetime of a login session.
	DefaultSessionTTL = 24 * time.Hour
)

// Config is the root configuration.
type Config struct {
	Addr     string         `yaml:"addr"`
	Database DatabaseConfig `yaml:"database"`
	// Timezone is the IANA zone whose calendar defines day, week and month
	// buckets. Empty means the local zone.
	Timezone string `yaml:"timezone"`
	// User is the account the CLI acts as.
	User        string        `yaml:"user"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	ForwardAuth bool          `yaml:"forward_auth"`
	OIDC        OIDCConfig    `yaml:"oidc"`
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// OIDCConfig holds single sign-on settings. SSO is off unless Issuer is set.
type OIDCConfig struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether SSO is configured.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != "" && o.ClientID != ""
}

// Default returns a Config with the built-in defaults.
func Default() Config {
	return Config{
		Addr:       DefaultAddr,
		Database:   DatabaseConfig{Driver: DefaultDriver, URL: DefaultDatabase},
		SessionTTL: DefaultSessionTTL,
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(dir, "clok", "config.yaml"), nil
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path means DefaultPath, which
// may be missing.
func Load(path string) (Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist) && optional:
		case err != nil:
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	env := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	env("ADDR", &c.Addr)
	env("DATABASE_DRIVER", &c.Database.Driver)
	env("DATABASE_URL", &c.Database.URL)
	env("CLOK_TIMEZONE", &c.Timezone)
	env("CLOK_USER", &c.User)
	env("OIDC_ISSUER", &c.OIDC.Issuer)
	env("OIDC_CLIENT_ID", &c.OIDC.ClientID)
	env("OIDC_CLIENT_SECRET", &c.OIDC.ClientSecret)
	env("OIDC_REDIRECT_URL", &c.OIDC.RedirectURL)

	if v := getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}
	if v := getenv("FORWARD_AUTH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FORWARD_AUTH: %w", err)
		}
		c.ForwardAuth = b
	}
	return nil
}

// Validate checks the driver, zone and session lifetime.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return errors.New("database url is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// Location resolves Timezone. Empty means time.Local.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
