// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/authnlab/passkey/pkg/credentials"
	"github.com/authnlab/passkey/pkg/metrics"
	"github.com/authnlab/passkey/pkg/session"
	"github.com/authnlab/passkey/pkg/webauthn"
)

// maxFinishPayload bounds authenticator finish payloads. Real
// attestation responses are a few kilobytes.
const maxFinishPayload = 1 << 20

// Handler provides the HTTP handlers for the ceremony endpoints. Each
// request is bound to a server-side session through the session cookie;
// sessions are created lazily on first contact.
type Handler struct {
	sessions      *session.Manager
	tokens        *TokenIssuer
	logger        *slog.Logger
	secureCookies bool
}

// HandlerParams contains the parameters for creating a Handler.
type HandlerParams struct {
	// Sessions owns the per-caller sessions. Required.
	Sessions *session.Manager

	// Tokens issues JWTs on successful authentication. Optional; when
	// nil, responses carry no token.
	Tokens *TokenIssuer

	// Logger for HTTP-level events. Optional.
	Logger *slog.Logger

	// SecureCookies marks the session cookie Secure. Set when the
	// server terminates TLS.
	SecureCookies bool
}

// NewHandler creates a new HTTP handler.
func NewHandler(params HandlerParams) (*Handler, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:      params.Sessions,
		tokens:        params.Tokens,
		logger:        logger,
		secureCookies: params.SecureCookies,
	}, nil
}

// BeginRegistration handles POST /registration/begin
//
// Request body:
//
//	{
//	    "name": "alice@example.com"
//	}
//
// Response: WebAuthn credential creation options.
func (h *Handler) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	var req BeginRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "name is required")
		return
	}

	var options *protocol.CredentialCreation
	err := h.withSession(w, r, func(s *session.Session) error {
		var err error
		options, err = s.StartRegistration(req.Name)
		return err
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	payload, err := webauthn.EncodeCreationOptions(options)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeRaw(w, http.StatusOK, payload)
}

// FinishRegistration handles POST /registration/finish
//
// Request body: attestation response from the authenticator.
// Response: AuthResponse. The session is logged in as the new identity.
func (h *Handler) FinishRegistration(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewCeremonyTimer(metrics.CeremonyRegistration)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFinishPayload))
	if err != nil {
		timer.Observe(metrics.ResultMalformed)
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	var cred *credentials.Credential
	err = h.withSession(w, r, func(s *session.Session) error {
		var err error
		cred, err = s.FinishRegistration(payload)
		return err
	})
	h.observeFinish(timer, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeAuthResponse(w, cred.Identity)
}

// BeginLogin handles POST /login/begin
//
// No request body. The ceremony is open to any registered credential.
// Response: WebAuthn credential request options.
func (h *Handler) BeginLogin(w http.ResponseWriter, r *http.Request) {
	var options *protocol.CredentialAssertion
	err := h.withSession(w, r, func(s *session.Session) error {
		var err error
		options, err = s.StartLogin()
		return err
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeAssertionOptions(w, options)
}

// FinishLogin handles POST /login/finish
//
// Request body: assertion response from the authenticator.
// Response: AuthResponse. The session is logged in as the resolved
// identity.
func (h *Handler) FinishLogin(w http.ResponseWriter, r *http.Request) {
	h.finishAssertion(w, r, metrics.CeremonyLogin, func(s *session.Session, payload []byte) (string, error) {
		return s.FinishLogin(payload)
	})
}

// BeginReauthentication handles POST /reauthentication/begin
//
// The ceremony allow-list is constrained to the logged in identity.
// Anonymous sessions fail with 401.
func (h *Handler) BeginReauthentication(w http.ResponseWriter, r *http.Request) {
	var options *protocol.CredentialAssertion
	err := h.withSession(w, r, func(s *session.Session) error {
		var err error
		options, err = s.StartReauthentication()
		return err
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeAssertionOptions(w, options)
}

// FinishReauthentication handles POST /reauthentication/finish
//
// Request body: assertion response from the authenticator. The session
// identity never changes; a failure leaves the session logged in.
func (h *Handler) FinishReauthentication(w http.ResponseWriter, r *http.Request) {
	h.finishAssertion(w, r, metrics.CeremonyReauthentication, func(s *session.Session, payload []byte) (string, error) {
		return s.FinishReauthentication(payload)
	})
}

// Logout handles POST /logout. The server-side session is destroyed
// and the cookie cleared. Unknown sessions are a no-op.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		h.sessions.Destroy(cookie.Value)
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me and reports the caller's session state.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	var resp MeResponse
	err := h.withSession(w, r, func(s *session.Session) error {
		resp.Authenticated = s.Authenticated()
		resp.Identity = s.Identity()
		return nil
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Users handles GET /users and lists registered identities in
// registration order.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	resp := UsersResponse{Identities: []string{}}
	err := h.withSession(w, r, func(s *session.Session) error {
		if names := s.KnownIdentities(); names != nil {
			resp.Identities = names
		}
		return nil
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// finishAssertion is the shared body of the login and reauthentication
// finish handlers.
func (h *Handler) finishAssertion(w http.ResponseWriter, r *http.Request, ceremony string, fn func(*session.Session, []byte) (string, error)) {
	timer := metrics.NewCeremonyTimer(ceremony)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFinishPayload))
	if err != nil {
		timer.Observe(metrics.ResultMalformed)
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	var identity string
	err = h.withSession(w, r, func(s *session.Session) error {
		var err error
		identity, err = fn(s, payload)
		return err
	})
	h.observeFinish(timer, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeAuthResponse(w, identity)
}

// withSession runs fn against the caller's session, creating one and
// setting the cookie when the caller has none yet or presents a stale
// ID.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) error {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		err := h.sessions.WithSession(cookie.Value, fn)
		if !errors.Is(err, session.ErrSessionNotFound) {
			return err
		}
	}

	id := h.sessions.Create()
	h.setSessionCookie(w, id)
	return h.sessions.WithSession(id, fn)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// observeFinish records a ceremony finish outcome.
func (h *Handler) observeFinish(timer *metrics.CeremonyTimer, err error) {
	switch {
	case err == nil:
		timer.Observe(metrics.ResultSuccess)
	case errors.Is(err, webauthn.ErrMalformedResponse):
		timer.Observe(metrics.ResultMalformed)
	case webauthn.IsVerificationFailure(err) || errors.Is(err, webauthn.ErrUnknownCredential):
		timer.Observe(metrics.ResultRejected)
	default:
		timer.Observe(metrics.ResultPrecondition)
	}
	if errors.Is(err, webauthn.ErrCloneDetected) {
		metrics.RecordCloneDetection()
	}
}

// writeAuthResponse writes the post-authentication response, attaching
// a token when issuance is enabled.
func (h *Handler) writeAuthResponse(w http.ResponseWriter, identity string) {
	resp := AuthResponse{Identity: identity}
	if h.tokens != nil {
		token, err := h.tokens.Issue(identity)
		if err != nil {
			h.handleError(w, err)
			return
		}
		resp.Token = token
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeAssertionOptions(w http.ResponseWriter, options *protocol.CredentialAssertion) {
	payload, err := webauthn.EncodeAssertionOptions(options)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeRaw(w, http.StatusOK, payload)
}

// handleError maps ceremony and session errors to HTTP responses.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, webauthn.ErrIdentityExists):
		h.writeError(w, http.StatusConflict, ErrorCodeIdentityExists, "identity already exists")
	case errors.Is(err, webauthn.ErrMalformedResponse):
		h.writeError(w, http.StatusBadRequest, ErrorCodeMalformedResponse, "malformed authenticator response")
	case errors.Is(err, webauthn.ErrCeremonyExpired):
		h.writeError(w, http.StatusBadRequest, ErrorCodeCeremonyExpired, "ceremony expired")
	case errors.Is(err, webauthn.ErrCeremonyCompleted):
		h.writeError(w, http.StatusConflict, ErrorCodeCeremonyCompleted, "ceremony already completed")
	case errors.Is(err, webauthn.ErrUnknownCredential):
		h.writeError(w, http.StatusNotFound, ErrorCodeUnknownCredential, "unknown credential")
	case errors.Is(err, webauthn.ErrIdentityMismatch):
		h.writeError(w, http.StatusForbidden, ErrorCodeIdentityMismatch, "credential belongs to a different identity")
	case webauthn.IsVerificationFailure(err):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "verification failed")
	case errors.Is(err, session.ErrNotAuthenticated):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeNotAuthenticated, "not authenticated")
	case errors.Is(err, session.ErrNoCeremony):
		h.writeError(w, http.StatusBadRequest, ErrorCodeNoCeremony, "no ceremony in flight")
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeRaw writes pre-serialized JSON.
func (h *Handler) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("failed to write response", "error", err, "status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
