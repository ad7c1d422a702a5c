// Copyright (c) 2025 The passkey authors
//
// This file is part of passkey.
//
// passkey is licensed under the MIT License.
// See the LICENSE file for details.

package webauthn

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"testing"

	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePublicKey_ES256(t *testing.T) {
	authenticator, err := NewMockAuthenticator("example.com")
	require.NoError(t, err)

	coseKey, err := authenticator.PublicKeyBytes()
	require.NoError(t, err)

	key, err := ParsePublicKey(coseKey)
	require.NoError(t, err)
	assert.Equal(t, AlgES256, key.Alg)
	require.NotNil(t, key.EC2)
	assert.Nil(t, key.RSA)
	assert.Nil(t, key.OKP)
}

func TestParsePublicKey_EdDSA(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	coseKey, err := webauthncbor.Marshal(map[int]interface{}{
		1:  1,  // kty: OKP
		3:  -8, // alg: EdDSA
		-1: 6,  // crv: Ed25519
		-2: []byte(pub),
	})
	require.NoError(t, err)

	key, err := ParsePublicKey(coseKey)
	require.NoError(t, err)
	assert.Equal(t, AlgEdDSA, key.Alg)
	assert.Equal(t, pub, key.OKP)
}

func TestParsePublicKey_RS256(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	coseKey, err := webauthncbor.Marshal(map[int]interface{}{
		1:  3,    // kty: RSA
		3:  -257, // alg: RS256
		-1: priv.PublicKey.N.Bytes(),
		-2: []byte{0x01, 0x00, 0x01},
	})
	require.NoError(t, err)

	key, err := ParsePublicKey(coseKey)
	require.NoError(t, err)
	assert.Equal(t, AlgRS256, key.Alg)
	require.NotNil(t, key.RSA)
	assert.Equal(t, priv.PublicKey.E, key.RSA.E)
}

func TestParsePublicKey_Garbage(t *testing.T) {
	_, err := ParsePublicKey([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestVerify_ES256(t *testing.T) {
	authenticator, err := NewMockAuthenticator("example.com")
	require.NoError(t, err)
	coseKey, err := authenticator.PublicKeyBytes()
	require.NoError(t, err)
	key, err := ParsePublicKey(coseKey)
	require.NoError(t, err)

	challenge := []byte("signed payload")
	payload, err := authenticator.AssertionResponse(challenge, nil, testOrigin)
	require.NoError(t, err)

	parsed, err := ParseAssertionResponse(payload)
	require.NoError(t, err)

	clientDataHash := sha256.Sum256(parsed.Raw.AssertionResponse.ClientDataJSON)
	signed := append([]byte{}, parsed.Raw.AssertionResponse.AuthenticatorData...)
	signed = append(signed, clientDataHash[:]...)

	require.NoError(t, key.Verify(signed, parsed.Response.Signature))

	// Flipping a byte of the signed data must invalidate the signature.
	signed[0] ^= 0xff
	require.Error(t, key.Verify(signed, parsed.Response.Signature))
}

func TestVerify_EdDSA(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	key := &PublicKey{Alg: AlgEdDSA, OKP: pub}
	data := []byte("signed payload")
	sig := ed25519.Sign(priv, data)

	require.NoError(t, key.Verify(data, sig))
	require.Error(t, key.Verify([]byte("other payload"), sig))
}

func TestVerify_RS256(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key := &PublicKey{Alg: AlgRS256, RSA: &priv.PublicKey}
	data := []byte("signed payload")
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	require.NoError(t, err)

	require.NoError(t, key.Verify(data, sig))
	require.Error(t, key.Verify([]byte("other payload"), sig))
}

func TestVerify_UntaggedKey(t *testing.T) {
	key := &PublicKey{Alg: Algorithm(-36)}
	err := key.Verify([]byte("data"), []byte("sig"))
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestAlgorithmString(t *testing.T) {
	assert.Equal(t, "ES256", AlgES256.String())
	assert.Equal(t, "EdDSA", AlgEdDSA.String())
	assert.Equal(t, "RS256", AlgRS256.String())
	assert.Equal(t, "COSE(-36)", Algorithm(-36).String())
}
