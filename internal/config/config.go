// Package config loads application configuration from defaults, an optional
// config file, a .env file and GSTBOOKS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sequencer SequencerConfig `mapstructure:"sequencer"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Report    ReportConfig    `mapstructure:"report"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig selects the storage backend. DSN is used by sqlite and
// postgres, Path by bolt.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	DSN        string `mapstructure:"dsn"`
	Path       string `mapstructure:"path"`
	Migrations bool   `mapstructure:"migrations"`
	Debug      bool   `mapstructure:"debug"`
}

// SequencerConfig bounds how long invoice numbering may wait on the counter.
type SequencerConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// InvoiceConfig holds numbering and currency defaults.
type InvoiceConfig struct {
	Prefix   string `mapstructure:"prefix"`
	Currency string `mapstructure:"currency"`
}

// AuthConfig enables bearer-token auth when Secret is set.
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// ReportConfig holds report cache settings.
type ReportConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LogConfig mirrors logger.LogConfig.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// AuthEnabled reports whether API requests need a bearer token.
func (c *Config) AuthEnabled() bool { return c.Auth.Secret != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "file:gstbooks.db?_busy_timeout=5000")
	v.SetDefault("database.path", "gstbooks.bolt")
	v.SetDefault("database.migrations", true)
	v.SetDefault("database.debug", false)

	v.SetDefault("sequencer.timeout", 2*time.Second)

	v.SetDefault("invoice.prefix", "INV")
	v.SetDefault("invoice.currency", "INR")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("report.cache_ttl", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
}

// Load reads configuration. A .env file in the working directory is loaded
// first if present; variables already set in the environment win over it.
// GSTBOOKS_CONFIG may name a yaml, json or toml file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("GSTBOOKS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("GSTBOOKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver))
		}
	case DriverBolt:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for driver bolt"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: must be sqlite, postgres, bolt or memory", c.Database.Driver))
	}
	if c.Sequencer.Timeout <= 0 {
		errs = append(errs, errors.New("sequencer.timeout must be positive"))
	}
	if strings.TrimSpace(c.Invoice.Prefix) == "" {
		errs = append(errs, errors.New("invoice.prefix must not be empty"))
	}
	if len(c.Invoice.Currency) != 3 {
		errs = append(errs, fmt.Errorf("invoice.currency %q: must be a 3-letter ISO code", c.Invoice.Currency))
	}
	if c.AuthEnabled() && c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	return errors.Join(errs...)
}
