// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations. Verification failures are
// deliberately coarse: callers learn that a ceremony failed, not which
// check rejected it.
var (
	// ErrIdentityExists is returned when starting a registration for a
	// name that already holds a credential.
	ErrIdentityExists = errors.New("identity already exists")

	// ErrCeremonyCompleted is returned when finishing a ceremony that has
	// already been finished once.
	ErrCeremonyCompleted = errors.New("ceremony already completed")

	// ErrCeremonyExpired is returned when finishing a ceremony after its
	// configured lifetime has elapsed.
	ErrCeremonyExpired = errors.New("ceremony expired")

	// ErrMalformedResponse is returned when the authenticator response
	// cannot be decoded. No cryptographic check has run at that point.
	ErrMalformedResponse = errors.New("malformed authenticator response")

	// ErrRegistrationFailed is returned for any registration verification
	// failure: challenge, origin, signature or format mismatch.
	ErrRegistrationFailed = errors.New("registration verification failed")

	// ErrAssertionFailed is returned for any assertion verification
	// failure: challenge, origin, signature or format mismatch.
	ErrAssertionFailed = errors.New("assertion verification failed")

	// ErrUnknownCredential is returned when an assertion response names a
	// credential the repository does not hold.
	ErrUnknownCredential = errors.New("unknown credential")

	// ErrIdentityMismatch is returned when a constrained assertion
	// resolves to a different identity than the constraint.
	ErrIdentityMismatch = errors.New("identity mismatch")

	// ErrCloneDetected is returned when the authenticator's signature
	// counter did not advance, indicating a possible cloned authenticator.
	ErrCloneDetected = errors.New("possible cloned authenticator detected")

	// ErrUnsupportedAlgorithm is returned when a credential public key
	// uses an algorithm outside the configured accept list.
	ErrUnsupportedAlgorithm = errors.New("unsupported public key algorithm")
)

// CeremonyError wraps a sentinel error with the operation that failed.
type CeremonyError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *CeremonyError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CeremonyError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *CeremonyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with an operation name if it's not nil.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CeremonyError{Op: op, Err: err}
}

// IsVerificationFailure reports whether err is a terminal verification
// failure, as opposed to a precondition error such as ErrIdentityExists.
func IsVerificationFailure(err error) bool {
	return errors.Is(err, ErrRegistrationFailed) ||
		errors.Is(err, ErrAssertionFailed) ||
		errors.Is(err, ErrCloneDetected) ||
		errors.Is(err, ErrIdentityMismatch)
}
