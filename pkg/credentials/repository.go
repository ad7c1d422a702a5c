// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package credentials

import "errors"

// Sentinel errors for credential persistence.
var (
	// ErrDuplicateRegistration is returned when storing a credential for
	// an identity that already holds one.
	ErrDuplicateRegistration = errors.New("identity already has a registered credential")

	// ErrCredentialNotFound is returned when updating a credential that
	// does not exist.
	ErrCredentialNotFound = errors.New("credential not found")
)

// Repository is the durable mapping between identities and their public-key
// credentials. It is shared by all sessions and must support concurrent
// reads and writes: a lookup started after a store completes observes it.
//
// The repository has no knowledge of ceremonies; it never verifies anything.
type Repository interface {
	// CredentialIDsForIdentity returns the credential IDs registered for
	// the named identity. Unknown identities yield an empty slice, never
	// an error.
	CredentialIDsForIdentity(name string) [][]byte

	// HandleForIdentity returns the user handle for the named identity.
	HandleForIdentity(name string) ([]byte, bool)

	// IdentityForHandle returns the identity name owning the handle.
	IdentityForHandle(handle []byte) (string, bool)

	// Lookup returns the credential matching both the credential ID and
	// the user handle. A record is returned only when both fields match
	// the same stored credential; mismatched pairs return false.
	Lookup(credentialID, handle []byte) (*Credential, bool)

	// LookupAllByCredentialID returns every credential with the given ID,
	// across all identities. Callers expecting exactly one record must
	// treat a non-singleton result as a cloning signal.
	LookupAllByCredentialID(credentialID []byte) []*Credential

	// Store persists a new credential for the named identity. It fails
	// with ErrDuplicateRegistration when the identity already holds a
	// credential.
	Store(name string, handle, credentialID, publicKey []byte, signCount uint32) error

	// UpdateSignCount records a new signature counter for the credential
	// identified by the (credentialID, handle) pair.
	UpdateSignCount(credentialID, handle []byte, count uint32) error

	// ListKnownIdentities returns all registered identity names in
	// insertion order. Display only; not security relevant.
	ListKnownIdentities() []string
}
