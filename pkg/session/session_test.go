// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package session

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authnlab/passkey/pkg/credentials"
	"github.com/authnlab/passkey/pkg/webauthn"
)

const testOrigin = "https://example.com"

func newTestEngine(t *testing.T) (*webauthn.Engine, *credentials.MemoryRepository) {
	t.Helper()

	repo := credentials.NewMemoryRepository()
	engine, err := webauthn.NewEngine(webauthn.EngineParams{
		Config: &webauthn.Config{
			RPID:          "example.com",
			RPDisplayName: "Example",
			RPOrigins:     []string{testOrigin},
		},
		Repository: repo,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return engine, repo
}

func newTestSession(t *testing.T) (*Session, *webauthn.Engine) {
	t.Helper()

	engine, repo := newTestEngine(t)
	session, err := New(engine, repo)
	require.NoError(t, err)

	return session, engine
}

// register runs a full registration ceremony on the session and returns
// the mock authenticator holding the new credential.
func register(t *testing.T, session *Session, name string) *webauthn.MockAuthenticator {
	t.Helper()

	options, err := session.StartRegistration(name)
	require.NoError(t, err)

	authenticator, err := webauthn.NewMockAuthenticator("example.com")
	require.NoError(t, err)

	payload, err := authenticator.RegistrationResponse(options.Response.Challenge, testOrigin)
	require.NoError(t, err)

	_, err = session.FinishRegistration(payload)
	require.NoError(t, err)

	return authenticator
}

func TestNew(t *testing.T) {
	engine, repo := newTestEngine(t)

	_, err := New(nil, repo)
	require.Error(t, err)

	_, err = New(engine, nil)
	require.Error(t, err)

	session, err := New(engine, repo)
	require.NoError(t, err)
	assert.False(t, session.Authenticated())
	assert.Empty(t, session.Identity())
}

func TestSession_RegistrationAuthenticates(t *testing.T) {
	session, _ := newTestSession(t)

	register(t, session, "alice")

	assert.True(t, session.Authenticated())
	assert.Equal(t, "alice", session.Identity())
}

func TestSession_FinishWithoutStart(t *testing.T) {
	session, _ := newTestSession(t)

	_, err := session.FinishRegistration([]byte("{}"))
	require.ErrorIs(t, err, ErrNoCeremony)

	_, err = session.FinishLogin([]byte("{}"))
	require.ErrorIs(t, err, ErrNoCeremony)
}

func TestSession_FailedRegistrationLeavesAnonymous(t *testing.T) {
	session, _ := newTestSession(t)

	_, err := session.StartRegistration("alice")
	require.NoError(t, err)

	_, err = session.FinishRegistration([]byte("garbage"))
	require.ErrorIs(t, err, webauthn.ErrMalformedResponse)

	assert.False(t, session.Authenticated())

	// The ceremony was consumed; finishing again needs a new start.
	_, err = session.FinishRegistration([]byte("garbage"))
	require.ErrorIs(t, err, ErrNoCeremony)
}

func TestSession_LoginFlow(t *testing.T) {
	session, _ := newTestSession(t)
	authenticator := register(t, session, "alice")

	session.Logout()
	assert.False(t, session.Authenticated())

	options, err := session.StartLogin()
	require.NoError(t, err)

	payload, err := authenticator.AssertionResponse(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)

	identity, err := session.FinishLogin(payload)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity)
	assert.True(t, session.Authenticated())
	assert.Equal(t, "alice", session.Identity())
}

func TestSession_FailedLoginLeavesAnonymous(t *testing.T) {
	session, _ := newTestSession(t)
	authenticator := register(t, session, "alice")
	session.Logout()

	_, err := session.StartLogin()
	require.NoError(t, err)

	// Response signed over the wrong challenge.
	wrongChallenge := make([]byte, webauthn.ChallengeLength)
	payload, err := authenticator.AssertionResponse(wrongChallenge, nil, testOrigin)
	require.NoError(t, err)

	_, err = session.FinishLogin(payload)
	require.ErrorIs(t, err, webauthn.ErrAssertionFailed)
	assert.False(t, session.Authenticated())
}

func TestSession_NewStartDiscardsPrevious(t *testing.T) {
	session, _ := newTestSession(t)
	authenticator := register(t, session, "alice")
	session.Logout()

	first, err := session.StartLogin()
	require.NoError(t, err)

	_, err = session.StartLogin()
	require.NoError(t, err)

	// A response to the discarded ceremony's challenge no longer verifies.
	payload, err := authenticator.AssertionResponse(first.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)

	_, err = session.FinishLogin(payload)
	require.ErrorIs(t, err, webauthn.ErrAssertionFailed)
}

func TestSession_Reauthentication(t *testing.T) {
	session, _ := newTestSession(t)
	authenticator := register(t, session, "alice")

	options, err := session.StartReauthentication()
	require.NoError(t, err)
	require.Len(t, options.Response.AllowedCredentials, 1)

	payload, err := authenticator.AssertionResponse(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)

	identity, err := session.FinishReauthentication(payload)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity)
	assert.Equal(t, "alice", session.Identity())
}

func TestSession_ReauthenticationRequiresLogin(t *testing.T) {
	session, _ := newTestSession(t)

	_, err := session.StartReauthentication()
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = session.FinishReauthentication([]byte("{}"))
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSession_FailedReauthenticationKeepsIdentity(t *testing.T) {
	session, _ := newTestSession(t)
	register(t, session, "alice")

	_, err := session.StartReauthentication()
	require.NoError(t, err)

	_, err = session.FinishReauthentication([]byte("garbage"))
	require.ErrorIs(t, err, webauthn.ErrMalformedResponse)

	// A failed confirmation does not log the session out.
	assert.True(t, session.Authenticated())
	assert.Equal(t, "alice", session.Identity())
}

func TestSession_LogoutDiscardsCeremonies(t *testing.T) {
	session, _ := newTestSession(t)
	register(t, session, "alice")
	session.Logout()

	_, err := session.StartRegistration("bob")
	require.NoError(t, err)
	session.Logout()

	_, err = session.FinishRegistration([]byte("{}"))
	require.ErrorIs(t, err, ErrNoCeremony)
}

func TestSession_IdentityDirectory(t *testing.T) {
	session, _ := newTestSession(t)

	assert.False(t, session.IdentityExists("alice"))
	assert.Empty(t, session.KnownIdentities())

	register(t, session, "alice")
	session.Logout()
	register(t, session, "bob")

	assert.True(t, session.IdentityExists("alice"))
	assert.False(t, session.IdentityExists("carol"))
	assert.Equal(t, []string{"alice", "bob"}, session.KnownIdentities())
}
