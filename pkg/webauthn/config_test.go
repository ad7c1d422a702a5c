// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "missing RPID",
			config:  Config{RPDisplayName: "Example", RPOrigins: []string{testOrigin}},
			wantErr: "RPID is required",
		},
		{
			name:    "missing display name",
			config:  Config{RPID: "example.com", RPOrigins: []string{testOrigin}},
			wantErr: "RPDisplayName is required",
		},
		{
			name:    "missing origins",
			config:  Config{RPID: "example.com", RPDisplayName: "Example"},
			wantErr: "at least one RPOrigin is required",
		},
		{
			name: "unsupported algorithm",
			config: Config{
				RPID:          "example.com",
				RPDisplayName: "Example",
				RPOrigins:     []string{testOrigin},
				Algorithms:    []Algorithm{-36}, // ES512
			},
			wantErr: "unsupported algorithm",
		},
		{
			name: "invalid user verification",
			config: Config{
				RPID:             "example.com",
				RPDisplayName:    "Example",
				RPOrigins:        []string{testOrigin},
				UserVerification: "sometimes",
			},
			wantErr: "invalid user verification",
		},
		{
			name:   "valid",
			config: *validTestConfig(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfigSetDefaults(t *testing.T) {
	config := validTestConfig()
	config.SetDefaults()

	assert.Equal(t, 60*time.Second, config.Timeout)
	assert.Equal(t, 5*time.Minute, config.CeremonyTTL)
	assert.Equal(t, []Algorithm{AlgES256, AlgEdDSA, AlgRS256}, config.Algorithms)
	assert.Equal(t, "preferred", config.UserVerification)
}

func TestConfigSetDefaults_PreservesExplicit(t *testing.T) {
	config := validTestConfig()
	config.Timeout = 30 * time.Second
	config.CeremonyTTL = time.Minute
	config.Algorithms = []Algorithm{AlgES256}
	config.UserVerification = "required"

	config.SetDefaults()

	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, time.Minute, config.CeremonyTTL)
	assert.Equal(t, []Algorithm{AlgES256}, config.Algorithms)
	assert.Equal(t, "required", config.UserVerification)
}

func TestConfigCredentialParameters(t *testing.T) {
	config := validTestConfig()
	config.SetDefaults()

	params := config.credentialParameters()
	require.Len(t, params, 3)
	assert.EqualValues(t, AlgES256, params[0].Algorithm)
	assert.EqualValues(t, AlgEdDSA, params[1].Algorithm)
	assert.EqualValues(t, AlgRS256, params[2].Algorithm)
}
