// UAM - Universal Agent Messaging
// Copyright (C) 2025 uam-project
//
// This file is part of UAM.
//
// UAM is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// UAM is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with UAM. If not, see <https://www.gnu.org/licenses/>.

package uamcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	assert.NotEqual(t, kp1.Seed, kp2.Seed)
	assert.Len(t, kp1.VerifyKey, VerifyKeySize)
	assert.Len(t, kp1.SigningKey, SigningKeySize)
}

func TestKeyPairFromSeedDeterministic(t *testing.T) {
	var seed [SeedSize]byte
	for i := range seed {
		seed[i] = byte(i)
	}

	kp1, err := KeyPairFromSeed(seed)
	require.NoError(t, err)
	kp2, err := KeyPairFromSeed(seed)
	require.NoError(t, err)

	assert.Equal(t, kp1.SigningKey, kp2.SigningKey)
	assert.Equal(t, kp1.VerifyKey, kp2.VerifyKey)
}

func TestSignVerify(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("hello uam")
	sig := Sign(msg, kp.SigningKey)

	assert.NoError(t, Verify(msg, sig, kp.VerifyKey))
	assert.ErrorIs(t, Verify([]byte("tampered"), sig, kp.VerifyKey), ErrSignatureVerification)

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(msg, sig, other.VerifyKey), ErrSignatureVerification)
}

func TestBoxRoundTrip(t *testing.T) {
	sender, err := GenerateKeyPair()
	require.NoError(t, err)
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)

	plaintext := []byte("secret agent payload")
	ciphertext, err := EncryptBox(plaintext, sender.Seed, recipient.VerifyKey)
	require.NoError(t, err)
	require.NotEmpty(t, ciphertext)

	got, err := DecryptBox(ciphertext, recipient.Seed, sender.VerifyKey)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestBoxRoundTripWrongRecipient(t *testing.T) {
	sender, err := GenerateKeyPair()
	require.NoError(t, err)
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)
	interloper, err := GenerateKeyPair()
	require.NoError(t, err)

	ciphertext, err := EncryptBox([]byte("payload"), sender.Seed, recipient.VerifyKey)
	require.NoError(t, err)

	_, err = DecryptBox(ciphertext, interloper.Seed, sender.VerifyKey)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestBoxShortCiphertext(t *testing.T) {
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)

	_, err = DecryptBox(b64Encode([]byte("short")), recipient.Seed, recipient.VerifyKey)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestSealedBoxRoundTrip(t *testing.T) {
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)

	plaintext := []byte("anonymous handshake request")
	ciphertext, err := EncryptSealed(plaintext, recipient.VerifyKey)
	require.NoError(t, err)

	got, err := DecryptSealed(ciphertext, recipient.Seed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSealedBoxRoundTripWrongRecipient(t *testing.T) {
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)
	interloper, err := GenerateKeyPair()
	require.NoError(t, err)

	ciphertext, err := EncryptSealed([]byte("payload"), recipient.VerifyKey)
	require.NoError(t, err)

	_, err = DecryptSealed(ciphertext, interloper.Seed)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestSealedBoxIsAnonymous(t *testing.T) {
	recipient, err := GenerateKeyPair()
	require.NoError(t, err)

	c1, err := EncryptSealed([]byte("same message"), recipient.VerifyKey)
	require.NoError(t, err)
	c2, err := EncryptSealed([]byte("same message"), recipient.VerifyKey)
	require.NoError(t, err)

	assert.NotEqual(t, c1, c2, "each seal must use a fresh ephemeral keypair")
}

func TestCanonicalizeSortsKeysAndDropsSignature(t *testing.T) {
	v := map[string]any{
		"b":         1,
		"a":         2,
		"signature": "should-be-dropped",
		"nested": map[string]any{
			"z": 1,
			"y": nil,
		},
	}

	out, err := Canonicalize(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"nested":{"z":1}}`, string(out))
}

func TestCanonicalizeDeterministic(t *testing.T) {
	v1 := map[string]any{"x": 1, "y": 2}
	v2 := map[string]any{"y": 2, "x": 1}

	out1, err := Canonicalize(v1)
	require.NoError(t, err)
	out2, err := Canonicalize(v2)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestCanonicalizeEscapesNonASCIIAndLeavesHTMLCharsBare(t *testing.T) {
	v := map[string]any{
		"name": "café <bob> & \U0001F600",
	}

	out, err := Canonicalize(v)
	require.NoError(t, err)
	assert.Equal(t, "{\"name\":\"caf\\u00e9 <bob> & \\ud83d\\ude00\"}", string(out))
}

func TestFingerprintKeyStableAndDistinct(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)
	kp2, err := GenerateKeyPair()
	require.NoError(t, err)

	f1a := FingerprintKey(kp1.VerifyKey)
	f1b := FingerprintKey(kp1.VerifyKey)
	f2 := FingerprintKey(kp2.VerifyKey)

	assert.Equal(t, f1a, f1b)
	assert.NotEqual(t, f1a, f2)
	assert.Len(t, f1a, 64)
}

func TestX25519ConversionsAreConsistentWithBox(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	priv := signingKeyToX25519(kp.Seed)
	pub, err := verifyKeyToX25519(kp.VerifyKey)
	require.NoError(t, err)

	derived, err := curve25519Base(priv)
	require.NoError(t, err)
	assert.Equal(t, pub, derived)
}
