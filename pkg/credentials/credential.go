// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package credentials

import "time"

// Credential is a public-key credential registered by exactly one identity.
// The ID and Handle pair is the lookup key used during assertion; the
// SignCount is the only field that changes after registration.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator.
	ID []byte `json:"id"`

	// Identity is the human-readable name the credential belongs to.
	Identity string `json:"identity"`

	// Handle is the opaque random user handle bound into the credential
	// at registration. It stands in for the name in all cryptographic
	// bindings.
	Handle []byte `json:"handle"`

	// PublicKey is the credential public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// SignCount is the signature counter reported by the authenticator,
	// used to detect cloned authenticators.
	SignCount uint32 `json:"sign_count"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an assertion.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// clone returns a copy so callers cannot mutate stored records.
func (c *Credential) clone() *Credential {
	cp := *c
	cp.ID = append([]byte(nil), c.ID...)
	cp.Handle = append([]byte(nil), c.Handle...)
	cp.PublicKey = append([]byte(nil), c.PublicKey...)
	return &cp
}
