// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// MockAuthenticator simulates a client-side WebAuthn authenticator for
// testing. It produces the same wire-format JSON a browser would post
// back, so responses travel through the full parse and verify path.
type MockAuthenticator struct {
	// AAGUID is the authenticator model identifier (16 bytes).
	AAGUID []byte

	// CredentialID identifies the credential this authenticator holds.
	CredentialID []byte

	// SignCount is the current signature counter.
	SignCount uint32

	// UserPresent controls the UP flag in emitted authenticator data.
	UserPresent bool

	// UserVerified controls the UV flag in emitted authenticator data.
	UserVerified bool

	privateKey *ecdsa.PrivateKey
	rpIDHash   []byte
}

// MockAuthenticatorOption is a functional option for configuring a
// MockAuthenticator.
type MockAuthenticatorOption func(*MockAuthenticator)

// WithCredentialID sets a fixed credential ID.
func WithCredentialID(credentialID []byte) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.CredentialID = credentialID
	}
}

// WithSignCount sets the initial signature counter.
func WithSignCount(count uint32) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.SignCount = count
	}
}

// WithUserPresent sets the UP flag.
func WithUserPresent(up bool) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.UserPresent = up
	}
}

// WithUserVerified sets the UV flag.
func WithUserVerified(uv bool) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.UserVerified = uv
	}
}

// NewMockAuthenticator creates a mock authenticator bound to rpID with a
// fresh ES256 key pair.
func NewMockAuthenticator(rpID string, opts ...MockAuthenticatorOption) (*MockAuthenticator, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	aaguid := make([]byte, 16)
	if _, err := rand.Read(aaguid); err != nil {
		return nil, err
	}

	credentialID := make([]byte, 32)
	if _, err := rand.Read(credentialID); err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(rpID))

	m := &MockAuthenticator{
		AAGUID:       aaguid,
		CredentialID: credentialID,
		UserPresent:  true,
		UserVerified: true,
		privateKey:   privateKey,
		rpIDHash:     rpIDHash[:],
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// PublicKeyBytes returns the credential public key in COSE form.
func (m *MockAuthenticator) PublicKeyBytes() ([]byte, error) {
	pubKey := m.privateKey.Public().(*ecdsa.PublicKey)

	coseKey := map[int]interface{}{
		1:  2,                          // kty: EC2
		3:  int(webauthncose.AlgES256), // alg
		-1: 1,                          // crv: P-256
		-2: pubKey.X.Bytes(),
		-3: pubKey.Y.Bytes(),
	}

	return webauthncbor.Marshal(coseKey)
}

// SetSignCount overrides the signature counter, for exercising clone
// detection.
func (m *MockAuthenticator) SetSignCount(count uint32) {
	m.SignCount = count
}

// RegistrationResponse produces the wire JSON for a registration finish
// call: a credential creation response carrying a "none"-format
// attestation object for this authenticator's key.
func (m *MockAuthenticator) RegistrationResponse(challenge []byte, origin string) ([]byte, error) {
	authData, err := m.buildAuthenticatorData(true)
	if err != nil {
		return nil, err
	}

	clientDataJSON := buildClientDataJSON("webauthn.create", challenge, origin)

	attestationObject, err := webauthncbor.Marshal(map[string]interface{}{
		"authData": authData,
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
	})
	if err != nil {
		return nil, err
	}

	response := protocol.CredentialCreationResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{
				ID:   base64.RawURLEncoding.EncodeToString(m.CredentialID),
				Type: "public-key",
			},
			RawID: m.CredentialID,
		},
		AttestationResponse: protocol.AuthenticatorAttestationResponse{
			AuthenticatorResponse: protocol.AuthenticatorResponse{
				ClientDataJSON: clientDataJSON,
			},
			AttestationObject: attestationObject,
			Transports:        []string{"usb"},
		},
	}

	return json.Marshal(response)
}

// AssertionResponse produces the wire JSON for an assertion finish call,
// signing over authData || SHA-256(clientDataJSON) and advancing the
// signature counter first, as a real authenticator does.
func (m *MockAuthenticator) AssertionResponse(challenge, userHandle []byte, origin string) ([]byte, error) {
	m.SignCount++

	authData, err := m.buildAuthenticatorData(false)
	if err != nil {
		return nil, err
	}

	clientDataJSON := buildClientDataJSON("webauthn.get", challenge, origin)
	clientDataHash := sha256.Sum256(clientDataJSON)

	signed := append(authData, clientDataHash[:]...)
	digest := sha256.Sum256(signed)
	signature, err := ecdsa.SignASN1(rand.Reader, m.privateKey, digest[:])
	if err != nil {
		return nil, err
	}

	response := protocol.CredentialAssertionResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{
				ID:   base64.RawURLEncoding.EncodeToString(m.CredentialID),
				Type: "public-key",
			},
			RawID: m.CredentialID,
		},
		AssertionResponse: protocol.AuthenticatorAssertionResponse{
			AuthenticatorResponse: protocol.AuthenticatorResponse{
				ClientDataJSON: clientDataJSON,
			},
			AuthenticatorData: authData,
			Signature:         signature,
			UserHandle:        userHandle,
		},
	}

	return json.Marshal(response)
}

func (m *MockAuthenticator) buildFlags(includeCredential bool) byte {
	var flags byte
	if m.UserPresent {
		flags |= 0x01 // UP
	}
	if m.UserVerified {
		flags |= 0x04 // UV
	}
	if includeCredential {
		flags |= 0x40 // AT
	}
	return flags
}

// buildAuthenticatorData serializes the authenticator data structure.
// includeCredential adds the attested credential data block used during
// registration.
func (m *MockAuthenticator) buildAuthenticatorData(includeCredential bool) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(m.rpIDHash)
	buf.WriteByte(m.buildFlags(includeCredential))

	signCount := make([]byte, 4)
	binary.BigEndian.PutUint32(signCount, m.SignCount)
	buf.Write(signCount)

	if includeCredential {
		buf.Write(m.AAGUID)

		credentialIDLen := make([]byte, 2)
		binary.BigEndian.PutUint16(credentialIDLen, uint16(len(m.CredentialID)))
		buf.Write(credentialIDLen)
		buf.Write(m.CredentialID)

		pubKeyBytes, err := m.PublicKeyBytes()
		if err != nil {
			return nil, err
		}
		buf.Write(pubKeyBytes)
	}

	return buf.Bytes(), nil
}

func buildClientDataJSON(ceremonyType string, challenge []byte, origin string) []byte {
	clientData := struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
		Origin    string `json:"origin"`
	}{
		Type:      ceremonyType,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	}

	jsonBytes, _ := json.Marshal(clientData)
	return jsonBytes
}
