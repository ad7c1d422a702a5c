// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

// Package rest is the HTTP boundary of the passkey server. It binds
// each browser to a server-side session via an opaque cookie and moves
// ceremony JSON between the client authenticator and the ceremony
// engine; it performs no verification of its own.
//
// # Endpoints
//
//	POST /api/v1/registration/begin        start a registration ceremony
//	POST /api/v1/registration/finish       complete registration (logs the session in)
//	POST /api/v1/login/begin               start an authentication ceremony
//	POST /api/v1/login/finish              complete authentication
//	POST /api/v1/reauthentication/begin    start a ceremony bound to the logged in identity
//	POST /api/v1/reauthentication/finish   confirm the logged in identity
//	POST /api/v1/logout                    destroy the session
//	GET  /api/v1/me                        current session state
//	GET  /api/v1/users                     registered identity names
//	GET  /healthz                          liveness probe
//
// # Response format
//
// All responses are JSON. Error responses have the format:
//
//	{
//	    "error": "error_code",
//	    "message": "Human-readable message"
//	}
package rest
