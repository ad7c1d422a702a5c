// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package config

import (
	"crypto/tls"
	"fmt"
)

// TLSConfig controls TLS settings. WebAuthn requires a secure context,
// so production deployments terminate TLS either here or at a proxy in
// front of the server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// MinVersion and MaxVersion accept "TLS1.2" or "TLS1.3".
	// MinVersion defaults to TLS 1.2.
	MinVersion string `yaml:"min_version" mapstructure:"min_version"`
	MaxVersion string `yaml:"max_version" mapstructure:"max_version"`
}

// LoadTLSConfig loads a tls.Config from the TLSConfig struct. It
// returns nil when TLS is disabled.
func (cfg *TLSConfig) LoadTLSConfig() (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	minVersion := uint16(tls.VersionTLS12)
	if cfg.MinVersion != "" {
		minVersion, err = parseTLSVersion(cfg.MinVersion)
		if err != nil {
			return nil, err
		}
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVersion,
	}

	if cfg.MaxVersion != "" {
		maxVersion, err := parseTLSVersion(cfg.MaxVersion)
		if err != nil {
			return nil, err
		}
		tlsConfig.MaxVersion = maxVersion
	}

	return tlsConfig, nil
}

func parseTLSVersion(version string) (uint16, error) {
	switch version {
	case "TLS1.2":
		return tls.VersionTLS12, nil
	case "TLS1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unknown TLS version: %s", version)
	}
}
