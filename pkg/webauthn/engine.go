// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/authnlab/passkey/pkg/credentials"
)

// Engine issues ceremony challenges and verifies the signed responses.
// It owns no per-caller state: every ceremony is represented by a token
// the caller holds between the start and finish calls.
type Engine struct {
	config *Config
	repo   credentials.Repository
	logger *slog.Logger
	now    func() time.Time
}

// EngineParams contains dependencies for creating a ceremony engine.
type EngineParams struct {
	// Config is the relying party configuration (required).
	Config *Config

	// Repository is the credential persistence layer (required).
	Repository credentials.Repository

	// Logger receives debug detail about rejected ceremonies. The error
	// returned to callers stays coarse either way. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// NewEngine creates a ceremony engine with the provided dependencies.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("credential repository is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		config: params.Config,
		repo:   params.Repository,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// RegistrationCeremony is the caller-held token for an in-flight
// registration. It is consumed by exactly one FinishRegistration call.
type RegistrationCeremony struct {
	name      string
	handle    []byte
	challenge []byte
	issuedAt  time.Time
	done      bool
}

// Name returns the candidate identity name the ceremony was started for.
func (c *RegistrationCeremony) Name() string { return c.name }

// IssuedAt returns when the challenge was issued.
func (c *RegistrationCeremony) IssuedAt() time.Time { return c.issuedAt }

// AssertionCeremony is the caller-held token for an in-flight
// authentication. It is consumed by exactly one FinishAssertion call.
type AssertionCeremony struct {
	challenge  []byte
	constraint string // identity the response must resolve to; empty means any
	issuedAt   time.Time
	done       bool
}

// Constraint returns the identity constraint, or "" when any registered
// credential is acceptable.
func (c *AssertionCeremony) Constraint() string { return c.constraint }

// IssuedAt returns when the challenge was issued.
func (c *AssertionCeremony) IssuedAt() time.Time { return c.issuedAt }

// StartRegistration begins a registration ceremony for a new identity.
// It fails with ErrIdentityExists when the repository already holds a
// credential for name. The returned options are sent to the client; the
// ceremony token is kept server side.
func (e *Engine) StartRegistration(name string) (*RegistrationCeremony, *protocol.CredentialCreation, error) {
	const op = "start registration"

	if name == "" {
		return nil, nil, fmt.Errorf("%s: identity name is required", op)
	}
	if len(e.repo.CredentialIDsForIdentity(name)) > 0 {
		return nil, nil, wrapError(op, ErrIdentityExists)
	}

	challenge, err := GenerateChallenge()
	if err != nil {
		return nil, nil, wrapError(op, err)
	}
	handle, err := GenerateHandle()
	if err != nil {
		return nil, nil, wrapError(op, err)
	}

	ceremony := &RegistrationCeremony{
		name:      name,
		handle:    handle,
		challenge: challenge,
		issuedAt:  e.now(),
	}

	options := &protocol.CredentialCreation{
		Response: protocol.PublicKeyCredentialCreationOptions{
			RelyingParty: protocol.RelyingPartyEntity{
				CredentialEntity: protocol.CredentialEntity{Name: e.config.RPDisplayName},
				ID:               e.config.RPID,
			},
			User: protocol.UserEntity{
				CredentialEntity: protocol.CredentialEntity{Name: name},
				DisplayName:      name,
				ID:               protocol.URLEncodedBase64(handle),
			},
			Challenge:  protocol.URLEncodedBase64(challenge),
			Parameters: e.config.credentialParameters(),
			Timeout:    e.config.timeoutMillis(),
			AuthenticatorSelection: protocol.AuthenticatorSelection{
				UserVerification: e.config.userVerificationRequirement(),
			},
			Attestation: protocol.PreferNoAttestation,
		},
	}

	return ceremony, options, nil
}

// FinishRegistration verifies a registration response against the
// ceremony and, on success, persists the new credential. The ceremony is
// consumed whatever the outcome; a second call fails with
// ErrCeremonyCompleted and the repository is never touched on failure.
func (e *Engine) FinishRegistration(ceremony *RegistrationCeremony, payload []byte) (*credentials.Credential, error) {
	const op = "finish registration"

	if ceremony == nil {
		return nil, fmt.Errorf("%s: ceremony is required", op)
	}
	if ceremony.done {
		return nil, wrapError(op, ErrCeremonyCompleted)
	}
	ceremony.done = true

	if e.expired(ceremony.issuedAt) {
		return nil, wrapError(op, ErrCeremonyExpired)
	}

	parsed, err := ParseRegistrationResponse(payload)
	if err != nil {
		return nil, err
	}

	if reason := e.verifyRegistration(ceremony, parsed); reason != nil {
		e.logger.Debug("registration rejected", "identity", ceremony.name, "reason", reason)
		return nil, wrapError(op, ErrRegistrationFailed)
	}

	attData := parsed.Response.AttestationObject.AuthData.AttData
	signCount := parsed.Response.AttestationObject.AuthData.Counter

	if err := e.repo.Store(ceremony.name, ceremony.handle, attData.CredentialID, attData.CredentialPublicKey, signCount); err != nil {
		if errors.Is(err, credentials.ErrDuplicateRegistration) {
			return nil, wrapError(op, ErrIdentityExists)
		}
		return nil, wrapError(op, err)
	}

	cred, ok := e.repo.Lookup(attData.CredentialID, ceremony.handle)
	if !ok {
		return nil, fmt.Errorf("%s: stored credential not readable", op)
	}

	e.logger.Info("credential registered", "identity", ceremony.name, "algorithm", credentialAlgorithm(cred))
	return cred, nil
}

// StartAssertion begins an authentication ceremony accepting any
// registered credential.
func (e *Engine) StartAssertion() (*AssertionCeremony, *protocol.CredentialAssertion, error) {
	return e.startAssertion("")
}

// StartReauthentication begins an authentication ceremony constrained to
// the named identity's credentials: only they are offered to the client,
// and the response must resolve back to that identity.
func (e *Engine) StartReauthentication(name string) (*AssertionCeremony, *protocol.CredentialAssertion, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("start reauthentication: identity name is required")
	}
	return e.startAssertion(name)
}

func (e *Engine) startAssertion(constraint string) (*AssertionCeremony, *protocol.CredentialAssertion, error) {
	const op = "start assertion"

	var allowed []protocol.CredentialDescriptor
	if constraint != "" {
		ids := e.repo.CredentialIDsForIdentity(constraint)
		if len(ids) == 0 {
			return nil, nil, wrapError(op, ErrUnknownCredential)
		}
		for _, id := range ids {
			allowed = append(allowed, protocol.CredentialDescriptor{
				Type:         protocol.PublicKeyCredentialType,
				CredentialID: id,
			})
		}
	}

	challenge, err := GenerateChallenge()
	if err != nil {
		return nil, nil, wrapError(op, err)
	}

	ceremony := &AssertionCeremony{
		challenge:  challenge,
		constraint: constraint,
		issuedAt:   e.now(),
	}

	options := &protocol.CredentialAssertion{
		Response: protocol.PublicKeyCredentialRequestOptions{
			Challenge:          protocol.URLEncodedBase64(challenge),
			Timeout:            e.config.timeoutMillis(),
			RelyingPartyID:     e.config.RPID,
			AllowedCredentials: allowed,
			UserVerification:   e.config.userVerificationRequirement(),
		},
	}

	return ceremony, options, nil
}

// FinishAssertion verifies an assertion response against the ceremony and
// returns the resolved identity name. On success the stored signature
// counter is updated; on any failure the repository is left unmodified.
func (e *Engine) FinishAssertion(ceremony *AssertionCeremony, payload []byte) (string, error) {
	const op = "finish assertion"

	if ceremony == nil {
		return "", fmt.Errorf("%s: ceremony is required", op)
	}
	if ceremony.done {
		return "", wrapError(op, ErrCeremonyCompleted)
	}
	ceremony.done = true

	if e.expired(ceremony.issuedAt) {
		return "", wrapError(op, ErrCeremonyExpired)
	}

	parsed, err := ParseAssertionResponse(payload)
	if err != nil {
		return "", err
	}

	credentialID := parsed.RawID
	handle := parsed.Response.UserHandle
	if len(handle) == 0 {
		// The authenticator omitted the user handle; resolve it through
		// the credential ID. The same ID registered under more than one
		// identity is a cloning signal, not an ambiguity to guess at.
		matches := e.repo.LookupAllByCredentialID(credentialID)
		switch len(matches) {
		case 0:
			return "", wrapError(op, ErrUnknownCredential)
		case 1:
			handle = matches[0].Handle
		default:
			return "", wrapError(op, ErrCloneDetected)
		}
	}

	cred, ok := e.repo.Lookup(credentialID, handle)
	if !ok {
		return "", wrapError(op, ErrUnknownCredential)
	}

	if ceremony.constraint != "" && cred.Identity != ceremony.constraint {
		return "", wrapError(op, ErrIdentityMismatch)
	}

	if reason := e.verifyAssertion(ceremony, parsed, cred); reason != nil {
		e.logger.Debug("assertion rejected", "identity", cred.Identity, "reason", reason)
		return "", wrapError(op, ErrAssertionFailed)
	}

	reported := parsed.Response.AuthenticatorData.Counter
	if !counterAdvanced(cred.SignCount, reported) {
		e.logger.Warn("signature counter did not advance",
			"identity", cred.Identity, "stored", cred.SignCount, "reported", reported)
		return "", wrapError(op, ErrCloneDetected)
	}
	if reported > cred.SignCount {
		if err := e.repo.UpdateSignCount(credentialID, handle, reported); err != nil {
			return "", wrapError(op, err)
		}
	}

	return cred.Identity, nil
}

// verifyRegistration runs the registration checks and returns the precise
// rejection reason, which never leaves the engine.
func (e *Engine) verifyRegistration(ceremony *RegistrationCeremony, parsed *protocol.ParsedCredentialCreationData) error {
	client := parsed.Response.CollectedClientData
	if client.Type != protocol.CreateCeremony {
		return fmt.Errorf("unexpected client data type %q", client.Type)
	}
	if err := verifyChallenge(client.Challenge, ceremony.challenge); err != nil {
		return err
	}
	if !e.originAllowed(client.Origin) {
		return fmt.Errorf("origin %q not allowed", client.Origin)
	}

	authData := parsed.Response.AttestationObject.AuthData
	if err := e.verifyAuthenticatorData(&authData); err != nil {
		return err
	}
	if !authData.Flags.HasAttestedCredentialData() {
		return fmt.Errorf("attested credential data missing")
	}
	if len(authData.AttData.CredentialID) == 0 {
		return fmt.Errorf("credential ID missing")
	}

	key, err := ParsePublicKey(authData.AttData.CredentialPublicKey)
	if err != nil {
		return err
	}
	if !supported(e.config.Algorithms, key.Alg) {
		return fmt.Errorf("algorithm %s not accepted", key.Alg)
	}
	return nil
}

// verifyAssertion runs the assertion checks, including the signature over
// authData || SHA-256(clientDataJSON), and returns the precise rejection
// reason, which never leaves the engine.
func (e *Engine) verifyAssertion(ceremony *AssertionCeremony, parsed *protocol.ParsedCredentialAssertionData, cred *credentials.Credential) error {
	client := parsed.Response.CollectedClientData
	if client.Type != protocol.AssertCeremony {
		return fmt.Errorf("unexpected client data type %q", client.Type)
	}
	if err := verifyChallenge(client.Challenge, ceremony.challenge); err != nil {
		return err
	}
	if !e.originAllowed(client.Origin) {
		return fmt.Errorf("origin %q not allowed", client.Origin)
	}

	authData := parsed.Response.AuthenticatorData
	if err := e.verifyAuthenticatorData(&authData); err != nil {
		return err
	}

	key, err := ParsePublicKey(cred.PublicKey)
	if err != nil {
		return err
	}
	if !supported(e.config.Algorithms, key.Alg) {
		return fmt.Errorf("algorithm %s not accepted", key.Alg)
	}

	rawAuthData := parsed.Raw.AssertionResponse.AuthenticatorData
	clientDataHash := sha256.Sum256(parsed.Raw.AssertionResponse.ClientDataJSON)
	signed := make([]byte, 0, len(rawAuthData)+len(clientDataHash))
	signed = append(signed, rawAuthData...)
	signed = append(signed, clientDataHash[:]...)

	return key.Verify(signed, parsed.Response.Signature)
}

// verifyAuthenticatorData checks the RP ID binding and the presence
// flags shared by both ceremony kinds.
func (e *Engine) verifyAuthenticatorData(authData *protocol.AuthenticatorData) error {
	rpIDHash := sha256.Sum256([]byte(e.config.RPID))
	if subtle.ConstantTimeCompare(authData.RPIDHash, rpIDHash[:]) != 1 {
		return fmt.Errorf("RP ID hash mismatch")
	}
	if !authData.Flags.UserPresent() {
		return fmt.Errorf("user presence flag not set")
	}
	if e.config.UserVerification == "required" && !authData.Flags.UserVerified() {
		return fmt.Errorf("user verification required but flag not set")
	}
	return nil
}

// verifyChallenge compares the challenge echoed in signed client data
// against the issued one in constant time.
func verifyChallenge(received string, issued []byte) error {
	decoded, err := base64.RawURLEncoding.DecodeString(received)
	if err != nil {
		return fmt.Errorf("challenge not base64url: %w", err)
	}
	if subtle.ConstantTimeCompare(decoded, issued) != 1 {
		return fmt.Errorf("challenge mismatch")
	}
	return nil
}

// originAllowed reports whether the client data origin exactly matches a
// configured relying party origin.
func (e *Engine) originAllowed(origin string) bool {
	for _, allowed := range e.config.RPOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// expired reports whether a ceremony issued at t has outlived the
// configured TTL.
func (e *Engine) expired(t time.Time) bool {
	if e.config.CeremonyTTL <= 0 {
		return false
	}
	return e.now().Sub(t) > e.config.CeremonyTTL
}

// counterAdvanced implements the clone detection policy: the reported
// counter must exceed the stored one, except when the authenticator does
// not implement counters and both stay zero.
func counterAdvanced(stored, reported uint32) bool {
	if reported > stored {
		return true
	}
	return reported == 0 && stored == 0
}

func credentialAlgorithm(cred *credentials.Credential) string {
	key, err := ParsePublicKey(cred.PublicKey)
	if err != nil {
		return "unknown"
	}
	return key.Alg.String()
}
