// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package rest

// SessionCookie is the cookie binding a browser to its server-side
// session.
const SessionCookie = "passkey_session"

// BeginRegistrationRequest is the request body for starting
// registration.
type BeginRegistrationRequest struct {
	// Name is the identity to register (required).
	Name string `json:"name"`
}

// AuthResponse is the response after a successful registration, login
// or reauthentication.
type AuthResponse struct {
	// Identity is the authenticated identity name.
	Identity string `json:"identity"`

	// Token is a signed JWT for the identity. Present only when token
	// issuance is enabled.
	Token string `json:"token,omitempty"`
}

// MeResponse describes the state of the caller's session.
type MeResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity,omitempty"`
}

// UsersResponse lists registered identities in registration order.
type UsersResponse struct {
	Identities []string `json:"identities"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeIdentityExists     = "identity_exists"
	ErrorCodeNoCeremony         = "no_ceremony"
	ErrorCodeCeremonyExpired    = "ceremony_expired"
	ErrorCodeCeremonyCompleted  = "ceremony_completed"
	ErrorCodeMalformedResponse  = "malformed_response"
	ErrorCodeVerificationFailed = "verification_failed"
	ErrorCodeUnknownCredential  = "unknown_credential"
	ErrorCodeIdentityMismatch   = "identity_mismatch"
	ErrorCodeNotAuthenticated   = "not_authenticated"
	ErrorCodeInternalError      = "internal_error"
)
