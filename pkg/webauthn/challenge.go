// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"crypto/rand"
	"fmt"
)

const (
	// ChallengeLength is the size in bytes of issued challenges.
	ChallengeLength = 32

	// HandleLength is the size in bytes of generated user handles.
	HandleLength = 32
)

// GenerateChallenge returns a fresh single-use challenge from the system
// CSPRNG.
func GenerateChallenge() ([]byte, error) {
	return randomBytes(ChallengeLength)
}

// GenerateHandle returns a fresh opaque user handle from the system CSPRNG.
func GenerateHandle() ([]byte, error) {
	return randomBytes(HandleLength)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}
