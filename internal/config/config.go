// Package config loads the Harmonia server configuration from a TOML file
// with HARMONIA_ environment overrides layered on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "HARMONIA_"

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Sessions SessionsConfig `toml:"sessions"`
	Limits   LimitsConfig   `toml:"limits"`
	Media    MediaConfig    `toml:"media"`
	Logging  LoggingConfig  `toml:"logging"`
	Admin    AdminConfig    `toml:"admin"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           string   `toml:"port"`
	TLSCertFile    string   `toml:"tls_cert_file"`
	TLSKeyFile     string   `toml:"tls_key_file"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// StorageConfig locates the catalog snapshot file.
type StorageConfig struct {
	Path string `toml:"path"`
}

// SessionsConfig controls session lifetimes and the optional shared
// Postgres session store.
type SessionsConfig struct {
	PostgresDSN        string `toml:"postgres_dsn"`
	TTLHours           int    `toml:"ttl_hours"`
	IdleTimeoutMinutes int    `toml:"idle_timeout_minutes"`
	PurgeIntervalMin   int    `toml:"purge_interval_minutes"`
}

// LimitsConfig tunes request throttling. Redis settings apply to the
// cross-instance login counter.
type LimitsConfig struct {
	GlobalRPS          float64 `toml:"global_rps"`
	GlobalBurst        int     `toml:"global_burst"`
	LoginLimit         int     `toml:"login_limit"`
	LoginWindowSeconds int     `toml:"login_window_seconds"`
	RedisAddr          string  `toml:"redis_addr"`
	RedisPassword      string  `toml:"redis_password"`
	RedisTimeoutMS     int     `toml:"redis_timeout_ms"`
}

// MediaConfig points at the object storage host for audio and images.
type MediaConfig struct {
	Endpoint         string `toml:"endpoint"`
	PublicEndpoint   string `toml:"public_endpoint"`
	AccessKey        string `toml:"access_key"`
	SecretKey        string `toml:"secret_key"`
	RequestTimeoutMS int    `toml:"request_timeout_ms"`
	MaxAttempts      int    `toml:"max_attempts"`
	RetryIntervalMS  int    `toml:"retry_interval_ms"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AdminConfig seeds the bootstrap administrator on first start.
type AdminConfig struct {
	Name     string `toml:"name"`
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
		},
		Storage: StorageConfig{
			Path: "./data/harmonia.json",
		},
		Sessions: SessionsConfig{
			TTLHours:           30 * 24,
			IdleTimeoutMinutes: 0,
			PurgeIntervalMin:   60,
		},
		Limits: LimitsConfig{
			GlobalRPS:          0,
			GlobalBurst:        0,
			LoginLimit:         10,
			LoginWindowSeconds: 60,
			RedisTimeoutMS:     2000,
		},
		Media: MediaConfig{
			RequestTimeoutMS: 30000,
			MaxAttempts:      3,
			RetryIntervalMS:  500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the TOML file at path when it exists, then applies environment
// overrides. A .env file in the working directory is honoured first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Host, "HOST")
	setString(&c.Server.Port, "PORT")
	setString(&c.Server.TLSCertFile, "TLS_CERT_FILE")
	setString(&c.Server.TLSKeyFile, "TLS_KEY_FILE")
	if raw, ok := lookup("ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitAndTrim(raw)
	}

	setString(&c.Storage.Path, "STORAGE_PATH")

	setString(&c.Sessions.PostgresDSN, "SESSIONS_POSTGRES_DSN")
	setInt(&c.Sessions.TTLHours, "SESSIONS_TTL_HOURS")
	setInt(&c.Sessions.IdleTimeoutMinutes, "SESSIONS_IDLE_TIMEOUT_MINUTES")
	setInt(&c.Sessions.PurgeIntervalMin, "SESSIONS_PURGE_INTERVAL_MINUTES")

	setFloat(&c.Limits.GlobalRPS, "GLOBAL_RPS")
	setInt(&c.Limits.GlobalBurst, "GLOBAL_BURST")
	setInt(&c.Limits.LoginLimit, "LOGIN_LIMIT")
	setInt(&c.Limits.LoginWindowSeconds, "LOGIN_WINDOW_SECONDS")
	setString(&c.Limits.RedisAddr, "REDIS_ADDR")
	setString(&c.Limits.RedisPassword, "REDIS_PASSWORD")
	setInt(&c.Limits.RedisTimeoutMS, "REDIS_TIMEOUT_MS")

	setString(&c.Media.Endpoint, "MEDIA_ENDPOINT")
	setString(&c.Media.PublicEndpoint, "MEDIA_PUBLIC_ENDPOINT")
	setString(&c.Media.AccessKey, "MEDIA_ACCESS_KEY")
	setString(&c.Media.SecretKey, "MEDIA_SECRET_KEY")
	setInt(&c.Media.RequestTimeoutMS, "MEDIA_REQUEST_TIMEOUT_MS")
	setInt(&c.Media.MaxAttempts, "MEDIA_MAX_ATTEMPTS")
	setInt(&c.Media.RetryIntervalMS, "MEDIA_RETRY_INTERVAL_MS")

	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")

	setString(&c.Admin.Name, "ADMIN_NAME")
	setString(&c.Admin.Email, "ADMIN_EMAIL")
	setString(&c.Admin.Password, "ADMIN_PASSWORD")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		return fmt.Errorf("tls_cert_file and tls_key_file must be set together")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.Sessions.TTLHours < 1 {
		return fmt.Errorf("session ttl must be at least one hour")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Media.Endpoint != "" {
		if c.Media.AccessKey == "" || c.Media.SecretKey == "" {
			return fmt.Errorf("media access_key and secret_key are required when an endpoint is set")
		}
	}
	return nil
}

// Address returns the full listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// SessionTTL converts the configured hours to a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLHours) * time.Hour
}

// SessionIdleTimeout converts the configured minutes to a duration.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Sessions.IdleTimeoutMinutes) * time.Minute
}

// SessionPurgeInterval converts the configured minutes to a duration.
func (c *Config) SessionPurgeInterval() time.Duration {
	return time.Duration(c.Sessions.PurgeIntervalMin) * time.Minute
}

// LoginWindow converts the configured seconds to a duration.
func (c *Config) LoginWindow() time.Duration {
	return time.Duration(c.Limits.LoginWindowSeconds) * time.Second
}

// RedisTimeout converts the configured milliseconds to a duration.
func (c *Config) RedisTimeout() time.Duration {
	return time.Duration(c.Limits.RedisTimeoutMS) * time.Millisecond
}

func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(envPrefix + key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func setString(dest *string, key string) {
	if value, ok := lookup(key); ok {
		*dest = value
	}
}

func setInt(dest *int, key string) {
	if raw, ok := lookup(key); ok {
		if value, err := strconv.Atoi(raw); err == nil {
			*dest = value
		}
	}
}

func setFloat(dest *float64, key string) {
	if raw, ok := lookup(key); ok {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			*dest = value
		}
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
