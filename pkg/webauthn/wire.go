// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
)

// The wire format exchanged with the client authenticator is the W3C
// WebAuthn JSON encoding carried by the go-webauthn protocol types:
// binary fields are unpadded base64url and absent optional fields are
// omitted. Start payloads are built in engine.go; this file handles the
// finish direction.

// ParseRegistrationResponse decodes a registration finish payload. Any
// decode failure maps to ErrMalformedResponse; no field of a partially
// decoded response is ever trusted.
func ParseRegistrationResponse(payload []byte) (*protocol.ParsedCredentialCreationData, error) {
	var ccr protocol.CredentialCreationResponse
	if err := json.Unmarshal(payload, &ccr); err != nil {
		return nil, wrapError("parse registration response", ErrMalformedResponse)
	}

	parsed, err := ccr.Parse()
	if err != nil {
		return nil, wrapError("parse registration response", ErrMalformedResponse)
	}
	return parsed, nil
}

// ParseAssertionResponse decodes an assertion finish payload. Any decode
// failure maps to ErrMalformedResponse.
func ParseAssertionResponse(payload []byte) (*protocol.ParsedCredentialAssertionData, error) {
	var car protocol.CredentialAssertionResponse
	if err := json.Unmarshal(payload, &car); err != nil {
		return nil, wrapError("parse assertion response", ErrMalformedResponse)
	}

	parsed, err := car.Parse()
	if err != nil {
		return nil, wrapError("parse assertion response", ErrMalformedResponse)
	}
	return parsed, nil
}

// EncodeCreationOptions serializes a registration start payload for the
// client.
func EncodeCreationOptions(options *protocol.CredentialCreation) ([]byte, error) {
	return json.Marshal(options)
}

// EncodeAssertionOptions serializes an assertion start payload for the
// client.
func EncodeAssertionOptions(options *protocol.CredentialAssertion) ([]byte, error) {
	return json.Marshal(options)
}
