// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONTENTGATE_"

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "contentgate.yaml"

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Collections CollectionsConfig `yaml:"collections"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // only "sqlite"
	DSN    string `yaml:"dsn"`
}

// AuthConfig configures bearer tokens and the first admin account.
type AuthConfig struct {
	// JWTSecret signs tokens. A random secret is generated at startup when
	// empty, which invalidates tokens on every restart.
	JWTSecret string `yaml:"jwt_secret,omitempty"`

	TokenTTL   time.Duration `yaml:"token_ttl"`
	Collection string        `yaml:"collection"` // auth collection slug
	BcryptCost int           `yaml:"bcrypt_cost"`

	// AdminEmail and AdminPassword seed an admin user when the auth
	// collection is empty.
	AdminEmail    string `yaml:"admin_email,omitempty"`
	AdminPassword string `yaml:"admin_password,omitempty"`
}

// CollectionsConfig configures collection loading.
type CollectionsConfig struct {
	// Dir holds YAML collection definitions loaded next to the built-in ones.
	Dir string `yaml:"dir,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // Enable /metrics endpoint
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references and
// applying environment overrides and defaults.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	CONTENTGATE_SERVER_HOST         - Server host (default: 0.0.0.0)
//	CONTENTGATE_SERVER_PORT         - Server port (default: 3000)
//	CONTENTGATE_DATABASE_DSN        - Database path (default: contentgate.db)
//	CONTENTGATE_AUTH_JWT_SECRET     - Token signing secret
//	CONTENTGATE_AUTH_TOKEN_TTL      - Token lifetime (default: 24h)
//	CONTENTGATE_ADMIN_EMAIL         - Admin email for first-run bootstrap
//	CONTENTGATE_ADMIN_PASSWORD      - Admin password for first-run bootstrap
//	CONTENTGATE_COLLECTIONS_DIR     - Directory of YAML collections
//	CONTENTGATE_LOG_LEVEL           - Log level (default: info)
//	CONTENTGATE_LOG_FORMAT          - Log format: json or console (default: json)
//	CONTENTGATE_METRICS_ENABLED     - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	return finish(&cfg)
}

// LoadWithFallback loads the file when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies CONTENTGATE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("SERVER_HOST", &cfg.Server.Host)
	if v := os.Getenv(EnvPrefix + "SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	dur("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	str("DATABASE_DRIVER", &cfg.Database.Driver)
	str("DATABASE_DSN", &cfg.Database.DSN)

	str("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	dur("AUTH_TOKEN_TTL", &cfg.Auth.TokenTTL)
	str("ADMIN_EMAIL", &cfg.Auth.AdminEmail)
	str("ADMIN_PASSWORD", &cfg.Auth.AdminPassword)

	str("COLLECTIONS_DIR", &cfg.Collections.Dir)

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	if v := os.Getenv(EnvPrefix + "METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "contentgate.db"
	}

	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.Collection == "" {
		cfg.Auth.Collection = "users"
	}
	cfg.Auth.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.Auth.AdminEmail))

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}

	if cfg.Database.Driver != "sqlite" {
		errs = append(errs, fmt.Errorf("database.driver must be 'sqlite', got %q", cfg.Database.Driver))
	}

	if cfg.Auth.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must be positive"))
	}
	if cfg.Auth.BcryptCost != 0 && (cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31) {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between 4 and 31, got %d", cfg.Auth.BcryptCost))
	}
	if (cfg.Auth.AdminEmail == "") != (cfg.Auth.AdminPassword == "") {
		errs = append(errs, fmt.Errorf("auth.admin_email and auth.admin_password must be set together"))
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}
