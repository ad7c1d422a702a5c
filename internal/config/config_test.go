// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
webauthn:
  id: example.com
  display_name: Example
  origins:
    - https://example.com
`

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: 127.0.0.1
  port: 9443
webauthn:
  id: login.example.com
  display_name: Example Login
  origins:
    - https://login.example.com
  user_verification: required
logging:
  level: debug
  format: json
auth:
  jwt_enabled: true
  jwt_secret: test-secret
  jwt_ttl: 30m
ratelimit:
  enabled: true
  requests_per_minute: 120
  burst: 20
metrics:
  enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9443", cfg.Server.Address())
	assert.Equal(t, "login.example.com", cfg.WebAuthn.RPID)
	assert.Equal(t, []string{"https://login.example.com"}, cfg.WebAuthn.RPOrigins)
	assert.Equal(t, "required", cfg.WebAuthn.UserVerification)
	assert.True(t, cfg.Debug())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Auth.JWTEnabled)
	assert.Equal(t, 30*time.Minute, cfg.Auth.JWTTTL)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8443, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "passkey", cfg.Auth.JWTIssuer)
	assert.Equal(t, time.Hour, cfg.Auth.JWTTTL)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 30*time.Minute, cfg.Session.MaxIdle)
	assert.False(t, cfg.TLS.Enabled)

	// The ceremony engine defaults flow through.
	assert.Equal(t, 60*time.Second, cfg.WebAuthn.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.WebAuthn.CeremonyTTL)
	assert.Equal(t, "preferred", cfg.WebAuthn.UserVerification)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PASSKEY_SERVER_PORT", "9000")
	t.Setenv("PASSKEY_LOGGING_LEVEL", "warn")

	cfg, err := Load(writeConfigFile(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfigFile(t, "server: [not a map"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid log format",
		},
		{
			name: "tls without cert",
			mutate: func(c *Config) {
				c.TLS.Enabled = true
				c.TLS.KeyFile = "key.pem"
			},
			wantErr: "cert_file is required",
		},
		{
			name: "tls without key",
			mutate: func(c *Config) {
				c.TLS.Enabled = true
				c.TLS.CertFile = "cert.pem"
			},
			wantErr: "key_file is required",
		},
		{
			name: "jwt without secret",
			mutate: func(c *Config) {
				c.Auth.JWTEnabled = true
				c.Auth.JWTSecret = ""
			},
			wantErr: "jwt_secret is required",
		},
		{
			name:    "missing relying party",
			mutate:  func(c *Config) { c.WebAuthn.RPID = "" },
			wantErr: "webauthn",
		},
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfigFile(t, minimalConfig))
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
