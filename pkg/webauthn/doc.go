// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

// Package webauthn implements the relying-party side of the WebAuthn
// challenge/response ceremonies: issuing registration and assertion
// requests, and verifying the signed responses produced by a client-side
// authenticator.
//
// The Engine is the entry point. Each ceremony is two explicit calls with
// an opaque caller-held token in between:
//
//	ceremony, options, err := engine.StartRegistration("alice")
//	// send options to the browser, receive the signed response
//	cred, err := engine.FinishRegistration(ceremony, responseJSON)
//
// Wire payloads use the W3C WebAuthn JSON encoding (binary fields as
// unpadded base64url) via the go-webauthn protocol types. Verified
// credentials are persisted through a credentials.Repository; the engine
// never writes on a failed verification.
package webauthn
