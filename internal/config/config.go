// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

// Package config loads and validates the server configuration from a
// YAML file with PASSKEY_* environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/authnlab/passkey/pkg/ratelimit"
	"github.com/authnlab/passkey/pkg/webauthn"
)

// Config represents the complete server configuration.
type Config struct {
	Server    ServerConfig     `yaml:"server" mapstructure:"server"`
	WebAuthn  webauthn.Config  `yaml:"webauthn" mapstructure:"webauthn"`
	Logging   LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	TLS       TLSConfig        `yaml:"tls" mapstructure:"tls"`
	Auth      AuthConfig       `yaml:"auth" mapstructure:"auth"`
	RateLimit ratelimit.Config `yaml:"ratelimit" mapstructure:"ratelimit"`
	Metrics   MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Session   SessionConfig    `yaml:"session" mapstructure:"session"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// Address returns the host:port the server listens on.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// AuthConfig controls the tokens issued to authenticated sessions.
type AuthConfig struct {
	// JWTSecret signs issued tokens (HS256). Required when JWTEnabled.
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`

	// JWTEnabled controls whether login responses carry a signed token.
	JWTEnabled bool `yaml:"jwt_enabled" mapstructure:"jwt_enabled"`

	// JWTIssuer is the iss claim of issued tokens.
	JWTIssuer string `yaml:"jwt_issuer" mapstructure:"jwt_issuer"`

	// JWTTTL bounds token validity. Default: 1h.
	JWTTTL time.Duration `yaml:"jwt_ttl" mapstructure:"jwt_ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SessionConfig controls server-side session lifecycle.
type SessionConfig struct {
	// MaxIdle is how long a session survives without requests.
	// Default: 30m.
	MaxIdle time.Duration `yaml:"max_idle" mapstructure:"max_idle"`

	// PruneInterval is how often idle sessions are collected.
	// Default: 5m.
	PruneInterval time.Duration `yaml:"prune_interval" mapstructure:"prune_interval"`
}

// Load reads configuration from a YAML file, applies PASSKEY_*
// environment variable overrides, fills defaults and validates. An
// empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PASSKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Registered defaults make these keys overridable from the
	// environment even when the config file omits them.
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8443)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("webauthn.id", "")
	v.SetDefault("webauthn.display_name", "")
	v.SetDefault("auth.jwt_secret", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// SetDefaults fills unset fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8443
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Auth.JWTIssuer == "" {
		c.Auth.JWTIssuer = "passkey"
	}
	if c.Auth.JWTTTL == 0 {
		c.Auth.JWTTTL = time.Hour
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Session.MaxIdle == 0 {
		c.Session.MaxIdle = 30 * time.Minute
	}
	if c.Session.PruneInterval == 0 {
		c.Session.PruneInterval = 5 * time.Minute
	}

	c.WebAuthn.SetDefaults()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.TLS.Enabled {
		if c.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}

	if c.Auth.JWTEnabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required when JWT issuance is enabled")
	}

	if err := c.WebAuthn.Validate(); err != nil {
		return fmt.Errorf("webauthn: %w", err)
	}

	return nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Logging.Level, "debug")
}
