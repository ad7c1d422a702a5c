// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

// Package session tracks per-client authentication state across the
// two-call ceremony pattern: who is logged in, and which ceremony is in
// flight. A Session performs no locking of its own; concurrent callers
// go through a Manager, which serializes access per session.
package session

import (
	"errors"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/authnlab/passkey/pkg/credentials"
	"github.com/authnlab/passkey/pkg/webauthn"
)

var (
	// ErrNotAuthenticated is returned when an operation requires a logged
	// in identity and the session has none.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoCeremony is returned when finishing a ceremony kind that was
	// never started on this session.
	ErrNoCeremony = errors.New("no ceremony in flight")

	// ErrSessionNotFound is returned by the Manager for unknown session IDs.
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the authentication state of one client.
type Session struct {
	engine *webauthn.Engine
	repo   credentials.Repository

	identity     string
	registration *webauthn.RegistrationCeremony
	assertion    *webauthn.AssertionCeremony
}

// New creates an anonymous session backed by the given ceremony engine
// and credential repository.
func New(engine *webauthn.Engine, repo credentials.Repository) (*Session, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("credential repository is required")
	}
	return &Session{engine: engine, repo: repo}, nil
}

// Authenticated reports whether the session holds a logged in identity.
func (s *Session) Authenticated() bool {
	return s.identity != ""
}

// Identity returns the logged in identity name, or "" when anonymous.
func (s *Session) Identity() string {
	return s.identity
}

// Logout clears the logged in identity and discards any in-flight
// ceremonies.
func (s *Session) Logout() {
	s.identity = ""
	s.registration = nil
	s.assertion = nil
}

// StartRegistration begins a registration ceremony for name. A previous
// unfinished registration ceremony on this session is discarded.
func (s *Session) StartRegistration(name string) (*protocol.CredentialCreation, error) {
	ceremony, options, err := s.engine.StartRegistration(name)
	if err != nil {
		return nil, err
	}
	s.registration = ceremony
	return options, nil
}

// FinishRegistration completes the in-flight registration ceremony. On
// success the new credential is stored and the session is logged in as
// the registered identity.
func (s *Session) FinishRegistration(payload []byte) (*credentials.Credential, error) {
	if s.registration == nil {
		return nil, ErrNoCeremony
	}
	ceremony := s.registration
	s.registration = nil

	cred, err := s.engine.FinishRegistration(ceremony, payload)
	if err != nil {
		return nil, err
	}

	s.identity = cred.Identity
	return cred, nil
}

// StartLogin begins an authentication ceremony open to any registered
// credential. A previous unfinished assertion ceremony is discarded.
func (s *Session) StartLogin() (*protocol.CredentialAssertion, error) {
	ceremony, options, err := s.engine.StartAssertion()
	if err != nil {
		return nil, err
	}
	s.assertion = ceremony
	return options, nil
}

// FinishLogin completes the in-flight assertion ceremony and, on
// success, logs the session in as the resolved identity.
func (s *Session) FinishLogin(payload []byte) (string, error) {
	identity, err := s.finishAssertion(payload)
	if err != nil {
		return "", err
	}
	s.identity = identity
	return identity, nil
}

// StartReauthentication begins an assertion ceremony constrained to the
// logged in identity. Anonymous sessions fail with ErrNotAuthenticated.
func (s *Session) StartReauthentication() (*protocol.CredentialAssertion, error) {
	if !s.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	ceremony, options, err := s.engine.StartReauthentication(s.identity)
	if err != nil {
		return nil, err
	}
	s.assertion = ceremony
	return options, nil
}

// FinishReauthentication completes the in-flight assertion ceremony.
// The session identity never changes: a reauthentication confirms the
// current identity, its failure does not log the session out.
func (s *Session) FinishReauthentication(payload []byte) (string, error) {
	if !s.Authenticated() {
		return "", ErrNotAuthenticated
	}
	return s.finishAssertion(payload)
}

func (s *Session) finishAssertion(payload []byte) (string, error) {
	if s.assertion == nil {
		return "", ErrNoCeremony
	}
	ceremony := s.assertion
	s.assertion = nil

	return s.engine.FinishAssertion(ceremony, payload)
}

// IdentityExists reports whether name already holds a credential.
func (s *Session) IdentityExists(name string) bool {
	return len(s.repo.CredentialIDsForIdentity(name)) > 0
}

// KnownIdentities returns all registered identity names in registration
// order.
func (s *Session) KnownIdentities() []string {
	return s.repo.ListKnownIdentities()
}
