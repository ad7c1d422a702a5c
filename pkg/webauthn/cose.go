// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// Algorithm identifies a credential public key algorithm by its COSE
// identifier.
type Algorithm int

// Accepted COSE algorithm identifiers.
const (
	// AlgES256 is ECDSA over P-256 with SHA-256.
	AlgES256 Algorithm = -7
	// AlgEdDSA is Ed25519.
	AlgEdDSA Algorithm = -8
	// AlgRS256 is RSASSA-PKCS1-v1_5 with SHA-256.
	AlgRS256 Algorithm = -257
)

// String returns the JOSE name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgES256:
		return "ES256"
	case AlgEdDSA:
		return "EdDSA"
	case AlgRS256:
		return "RS256"
	default:
		return fmt.Sprintf("COSE(%d)", int(a))
	}
}

// PublicKey is a credential public key, tagged by algorithm. Exactly one
// of the key fields is set, matching Alg.
type PublicKey struct {
	Alg Algorithm

	EC2 *ecdsa.PublicKey
	RSA *rsa.PublicKey
	OKP ed25519.PublicKey
}

// ParsePublicKey decodes a COSE-encoded credential public key into its
// tagged form. Keys using algorithms or curves outside the supported set
// fail with ErrUnsupportedAlgorithm.
func ParsePublicKey(cose []byte) (*PublicKey, error) {
	parsed, err := webauthncose.ParsePublicKey(cose)
	if err != nil {
		return nil, fmt.Errorf("parse COSE key: %w", err)
	}

	switch k := parsed.(type) {
	case webauthncose.EC2PublicKeyData:
		if Algorithm(k.Algorithm) != AlgES256 || k.Curve != 1 { // COSE crv 1 = P-256
			return nil, wrapError("parse public key", ErrUnsupportedAlgorithm)
		}
		pub := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(k.XCoord),
			Y:     new(big.Int).SetBytes(k.YCoord),
		}
		if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
			return nil, fmt.Errorf("EC2 point not on curve")
		}
		return &PublicKey{Alg: AlgES256, EC2: pub}, nil

	case webauthncose.RSAPublicKeyData:
		if Algorithm(k.Algorithm) != AlgRS256 {
			return nil, wrapError("parse public key", ErrUnsupportedAlgorithm)
		}
		pub := &rsa.PublicKey{
			N: new(big.Int).SetBytes(k.Modulus),
			E: int(new(big.Int).SetBytes(k.Exponent).Int64()),
		}
		return &PublicKey{Alg: AlgRS256, RSA: pub}, nil

	case webauthncose.OKPPublicKeyData:
		if Algorithm(k.Algorithm) != AlgEdDSA || len(k.XCoord) != ed25519.PublicKeySize {
			return nil, wrapError("parse public key", ErrUnsupportedAlgorithm)
		}
		return &PublicKey{Alg: AlgEdDSA, OKP: ed25519.PublicKey(k.XCoord)}, nil

	default:
		return nil, wrapError("parse public key", ErrUnsupportedAlgorithm)
	}
}

// Verify checks sig over data with the verification function for the
// key's algorithm tag.
func (k *PublicKey) Verify(data, sig []byte) error {
	switch k.Alg {
	case AlgES256:
		digest := sha256.Sum256(data)
		if !ecdsa.VerifyASN1(k.EC2, digest[:], sig) {
			return fmt.Errorf("ES256 signature invalid")
		}
		return nil

	case AlgRS256:
		digest := sha256.Sum256(data)
		if err := rsa.VerifyPKCS1v15(k.RSA, crypto.SHA256, digest[:], sig); err != nil {
			return fmt.Errorf("RS256 signature invalid: %w", err)
		}
		return nil

	case AlgEdDSA:
		// Ed25519 signs the message directly, no prehash.
		if !ed25519.Verify(k.OKP, data, sig) {
			return fmt.Errorf("EdDSA signature invalid")
		}
		return nil

	default:
		return wrapError("verify signature", ErrUnsupportedAlgorithm)
	}
}

// supported reports whether alg is in the engine's accept list.
func supported(algs []Algorithm, alg Algorithm) bool {
	for _, a := range algs {
		if a == alg {
			return true
		}
	}
	return false
}
