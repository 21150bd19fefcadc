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
	"crypto/rand"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"

	"github.com/uam-project/uam-core/internal/metrics"
)

// EncryptBox authenticates and encrypts plaintext from sender to recipient.
// Both Ed25519 keys are converted to their Curve25519 equivalents; a fresh
// 24-byte nonce is generated and the wire format is
// base64(nonce || ciphertext), compatible with libsodium's "box easy" form.
func EncryptBox(plaintext []byte, senderSeed [SeedSize]byte, recipientVerifyKey [VerifyKeySize]byte) (_ string, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperations.WithLabelValues("box", "x25519").Inc()
		metrics.CryptoOperationDuration.WithLabelValues("box", "x25519").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("box").Inc()
		}
	}()

	senderXPriv := signingKeyToX25519(senderSeed)
	recipientXPub, err := verifyKeyToX25519(recipientVerifyKey)
	if err != nil {
		return "", ErrEncryption
	}

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", ErrEncryption
	}

	sealed := box.Seal(nil, plaintext, &nonce, &recipientXPub, &senderXPriv)

	out := make([]byte, 0, NonceSize+len(sealed))
	out = append(out, nonce[:]...)
	out = append(out, sealed...)
	return b64Encode(out), nil
}

// DecryptBox reverses EncryptBox: it splits the leading 24 bytes of
// ciphertextB64 as the nonce, then authenticates and decrypts the rest.
func DecryptBox(ciphertextB64 string, recipientSeed [SeedSize]byte, senderVerifyKey [VerifyKeySize]byte) (_ []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperations.WithLabelValues("unbox", "x25519").Inc()
		metrics.CryptoOperationDuration.WithLabelValues("unbox", "x25519").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("unbox").Inc()
		}
	}()

	raw, err := b64Decode(ciphertextB64)
	if err != nil {
		return nil, ErrDecryption
	}
	if len(raw) < NonceSize {
		return nil, ErrCiphertextTooShort
	}

	var nonce [NonceSize]byte
	copy(nonce[:], raw[:NonceSize])
	ciphertext := raw[NonceSize:]

	recipientXPriv := signingKeyToX25519(recipientSeed)
	senderXPub, err := verifyKeyToX25519(senderVerifyKey)
	if err != nil {
		return nil, ErrDecryption
	}

	plaintext, ok := box.Open(nil, ciphertext, &nonce, &senderXPub, &recipientXPriv)
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// EncryptSealed performs anonymous encryption to recipient: an ephemeral
// Curve25519 keypair is generated, the nonce is derived as
// blake2b-24(ephemeralPub || recipientPub) (the standard libsodium
// crypto_box_seal construction), and the wire format is
// base64(ephemeralPub || sealed).
func EncryptSealed(plaintext []byte, recipientVerifyKey [VerifyKeySize]byte) (_ string, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperations.WithLabelValues("sealedbox", "x25519").Inc()
		metrics.CryptoOperationDuration.WithLabelValues("sealedbox", "x25519").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("sealedbox").Inc()
		}
	}()

	recipientXPub, err := verifyKeyToX25519(recipientVerifyKey)
	if err != nil {
		return "", ErrEncryption
	}

	ephPub, ephPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", ErrEncryption
	}

	nonce, err := sealedBoxNonce(ephPub[:], recipientXPub[:])
	if err != nil {
		return "", ErrEncryption
	}

	sealed := box.Seal(nil, plaintext, &nonce, &recipientXPub, ephPriv)

	out := make([]byte, 0, len(ephPub)+len(sealed))
	out = append(out, ephPub[:]...)
	out = append(out, sealed...)
	return b64Encode(out), nil
}

// DecryptSealed reverses EncryptSealed using the recipient's Ed25519 signing
// key, from which the Curve25519 keypair is recovered.
func DecryptSealed(ciphertextB64 string, recipientSeed [SeedSize]byte) (_ []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.CryptoOperations.WithLabelValues("unsealedbox", "x25519").Inc()
		metrics.CryptoOperationDuration.WithLabelValues("unsealedbox", "x25519").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.CryptoErrors.WithLabelValues("unsealedbox").Inc()
		}
	}()

	raw, err := b64Decode(ciphertextB64)
	if err != nil {
		return nil, ErrDecryption
	}
	if len(raw) < 32 {
		return nil, ErrCiphertextTooShort
	}

	var ephPub [32]byte
	copy(ephPub[:], raw[:32])
	sealed := raw[32:]

	recipientXPriv := signingKeyToX25519(recipientSeed)

	recipientXPub, err := curve25519Base(recipientXPriv)
	if err != nil {
		return nil, ErrDecryption
	}

	nonce, err := sealedBoxNonce(ephPub[:], recipientXPub[:])
	if err != nil {
		return nil, ErrDecryption
	}

	plaintext, ok := box.Open(nil, sealed, &nonce, &ephPub, &recipientXPriv)
	if !ok {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// curve25519Base computes the Curve25519 public key for a private scalar via
// base-point scalar multiplication.
func curve25519Base(priv [32]byte) ([32]byte, error) {
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], pub)
	return out, nil
}

// sealedBoxNonce computes the deterministic nonce libsodium uses for
// crypto_box_seal: the first 24 bytes of BLAKE2b-192(ephemeralPub ||
// recipientPub).
func sealedBoxNonce(ephemeralPub, recipientPub []byte) ([NonceSize]byte, error) {
	h, err := blake2b.New(NonceSize, nil)
	if err != nil {
		return [NonceSize]byte{}, err
	}
	h.Write(ephemeralPub)
	h.Write(recipientPub)

	var nonce [NonceSize]byte
	copy(nonce[:], h.Sum(nil))
	return nonce, nil
}
