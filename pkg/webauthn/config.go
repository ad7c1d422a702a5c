// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// Config configures the ceremony engine.
type Config struct {
	// RPID is the Relying Party identifier, typically the domain name.
	// Example: "example.com"
	RPID string `yaml:"id" json:"id" mapstructure:"id"`

	// RPDisplayName is the human-readable name of the Relying Party.
	RPDisplayName string `yaml:"display_name" json:"display_name" mapstructure:"display_name"`

	// RPOrigins are the origins accepted in signed client data.
	// Example: []string{"https://example.com"}
	RPOrigins []string `yaml:"origins" json:"origins" mapstructure:"origins"`

	// Timeout is the ceremony timeout hint sent to the client.
	// Default: 60s.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// CeremonyTTL bounds how long after StartRegistration/StartAssertion a
	// finish call is accepted. Negative disables expiry. Default: 5m.
	CeremonyTTL time.Duration `yaml:"ceremony_ttl" json:"ceremony_ttl" mapstructure:"ceremony_ttl"`

	// Algorithms are the accepted public key algorithms, in preference
	// order. Default: ES256, EdDSA, RS256.
	Algorithms []Algorithm `yaml:"algorithms" json:"algorithms" mapstructure:"algorithms"`

	// UserVerification is the user verification requirement sent to the
	// client: "required", "preferred" or "discouraged". Default:
	// "preferred".
	UserVerification string `yaml:"user_verification" json:"user_verification" mapstructure:"user_verification"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if c.RPDisplayName == "" {
		return fmt.Errorf("RPDisplayName is required")
	}
	if len(c.RPOrigins) == 0 {
		return fmt.Errorf("at least one RPOrigin is required")
	}

	for _, alg := range c.Algorithms {
		switch alg {
		case AlgES256, AlgRS256, AlgEdDSA:
		default:
			return fmt.Errorf("unsupported algorithm: %d", alg)
		}
	}

	switch c.UserVerification {
	case "", "required", "preferred", "discouraged":
	default:
		return fmt.Errorf("invalid user verification: %s", c.UserVerification)
	}

	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.CeremonyTTL == 0 {
		c.CeremonyTTL = 5 * time.Minute
	}
	if len(c.Algorithms) == 0 {
		c.Algorithms = []Algorithm{AlgES256, AlgEdDSA, AlgRS256}
	}
	if c.UserVerification == "" {
		c.UserVerification = "preferred"
	}
}

// credentialParameters returns the accepted algorithms as WebAuthn
// credential parameters for the registration request.
func (c *Config) credentialParameters() []protocol.CredentialParameter {
	params := make([]protocol.CredentialParameter, len(c.Algorithms))
	for i, alg := range c.Algorithms {
		params[i] = protocol.CredentialParameter{
			Type:      protocol.PublicKeyCredentialType,
			Algorithm: webauthncose.COSEAlgorithmIdentifier(alg),
		}
	}
	return params
}

// userVerificationRequirement returns the configured requirement in
// protocol form.
func (c *Config) userVerificationRequirement() protocol.UserVerificationRequirement {
	switch c.UserVerification {
	case "required":
		return protocol.VerificationRequired
	case "discouraged":
		return protocol.VerificationDiscouraged
	default:
		return protocol.VerificationPreferred
	}
}

// timeoutMillis returns the ceremony timeout hint in milliseconds for the
// wire payloads.
func (c *Config) timeoutMillis() int {
	return int(c.Timeout / time.Millisecond)
}
