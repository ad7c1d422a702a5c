// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/authnlab/passkey/pkg/credentials"
	"github.com/authnlab/passkey/pkg/webauthn"
)

// Manager owns the live sessions and serializes access to each one.
// Session IDs are opaque and unguessable.
type Manager struct {
	engine *webauthn.Engine
	repo   credentials.Repository

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

type managedSession struct {
	mu       sync.Mutex
	session  *Session
	lastSeen time.Time
}

// NewManager creates a session manager backed by the given engine and
// repository.
func NewManager(engine *webauthn.Engine, repo credentials.Repository) (*Manager, error) {
	if _, err := New(engine, repo); err != nil {
		return nil, err
	}
	return &Manager{
		engine:   engine,
		repo:     repo,
		sessions: make(map[string]*managedSession),
	}, nil
}

// Create allocates a new anonymous session and returns its ID.
func (m *Manager) Create() string {
	session, _ := New(m.engine, m.repo)
	id := uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = &managedSession{
		session:  session,
		lastSeen: time.Now(),
	}
	m.mu.Unlock()

	return id
}

// WithSession runs fn with exclusive access to the session identified by
// id. Concurrent calls for the same session are serialized; calls for
// different sessions proceed in parallel.
func (m *Manager) WithSession(id string, fn func(*Session) error) error {
	m.mu.RLock()
	managed, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	managed.mu.Lock()
	defer managed.mu.Unlock()
	managed.lastSeen = time.Now()

	return fn(managed.session)
}

// Destroy removes the session identified by id. Unknown IDs are a no-op.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// PruneIdle removes sessions that have not been touched for longer than
// maxIdle and returns how many were removed.
func (m *Manager) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for id, managed := range m.sessions {
		if managed.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned
}
