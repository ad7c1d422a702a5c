// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package credentials

import (
	"bytes"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository implementation. All methods
// are safe for concurrent use; a single RWMutex makes store and lookup
// linearizable with respect to each other.
type MemoryRepository struct {
	mu     sync.RWMutex
	byName map[string]*Credential
	order  []string
}

// NewMemoryRepository creates an empty in-memory credential repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byName: make(map[string]*Credential),
	}
}

// CredentialIDsForIdentity returns the credential IDs registered for name.
func (r *MemoryRepository) CredentialIDsForIdentity(name string) [][]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.byName[name]
	if !ok {
		return nil
	}
	return [][]byte{append([]byte(nil), cred.ID...)}
}

// HandleForIdentity returns the user handle for name.
func (r *MemoryRepository) HandleForIdentity(name string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), cred.Handle...), true
}

// IdentityForHandle returns the identity name owning handle.
func (r *MemoryRepository) IdentityForHandle(handle []byte) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, cred := range r.byName {
		if bytes.Equal(cred.Handle, handle) {
			return name, true
		}
	}
	return "", false
}

// Lookup returns the credential matching both credentialID and handle.
func (r *MemoryRepository) Lookup(credentialID, handle []byte) (*Credential, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, cred := range r.byName {
		if bytes.Equal(cred.ID, credentialID) && bytes.Equal(cred.Handle, handle) {
			return cred.clone(), true
		}
	}
	return nil, false
}

// LookupAllByCredentialID returns every credential with the given ID.
func (r *MemoryRepository) LookupAllByCredentialID(credentialID []byte) []*Credential {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Credential
	for _, name := range r.order {
		cred := r.byName[name]
		if bytes.Equal(cred.ID, credentialID) {
			out = append(out, cred.clone())
		}
	}
	return out
}

// Store persists a new credential for name.
func (r *MemoryRepository) Store(name string, handle, credentialID, publicKey []byte, signCount uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; ok {
		return ErrDuplicateRegistration
	}

	r.byName[name] = &Credential{
		ID:        append([]byte(nil), credentialID...),
		Identity:  name,
		Handle:    append([]byte(nil), handle...),
		PublicKey: append([]byte(nil), publicKey...),
		SignCount: signCount,
		CreatedAt: time.Now().UTC(),
	}
	r.order = append(r.order, name)
	return nil
}

// UpdateSignCount records a new signature counter for the credential
// identified by the (credentialID, handle) pair.
func (r *MemoryRepository) UpdateSignCount(credentialID, handle []byte, count uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cred := range r.byName {
		if bytes.Equal(cred.ID, credentialID) && bytes.Equal(cred.Handle, handle) {
			cred.SignCount = count
			cred.LastUsedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrCredentialNotFound
}

// ListKnownIdentities returns all registered identity names in insertion order.
func (r *MemoryRepository) ListKnownIdentities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Count returns the number of registered identities.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
