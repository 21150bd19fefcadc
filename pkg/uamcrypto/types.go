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

// Package uamcrypto wraps the cryptographic primitives the UAM protocol
// needs: Ed25519 sign/verify, seed-derived keypairs, NaCl Box and
// SealedBox payload encryption, fingerprints and canonical JSON.
package uamcrypto

import "errors"

// Common errors returned by this package.
var (
	ErrSignatureVerification = errors.New("uamcrypto: signature verification failed")
	ErrDecryption            = errors.New("uamcrypto: decryption failed")
	ErrEncryption            = errors.New("uamcrypto: encryption failed")
	ErrInvalidSeed           = errors.New("uamcrypto: seed must be 32 bytes")
	ErrInvalidKey            = errors.New("uamcrypto: invalid key length")
	ErrCiphertextTooShort    = errors.New("uamcrypto: ciphertext too short")
)

const (
	// SeedSize is the length in bytes of an Ed25519 seed.
	SeedSize = 32
	// SigningKeySize is the length in bytes of an Ed25519 private (signing) key.
	SigningKeySize = 64
	// VerifyKeySize is the length in bytes of an Ed25519 public (verify) key.
	VerifyKeySize = 32
	// NonceSize is the length in bytes of a Box nonce.
	NonceSize = 24
	// SignatureSize is the length in bytes of an Ed25519 signature.
	SignatureSize = 64
)

// KeyPair is an agent's long-term Ed25519 identity, derived deterministically
// from a 32-byte seed. It is the only persisted form; SigningKey and
// VerifyKey are always re-derived from Seed.
type KeyPair struct {
	Seed       [SeedSize]byte
	SigningKey [SigningKeySize]byte // ed25519.PrivateKey
	VerifyKey  [VerifyKeySize]byte  // ed25519.PublicKey, == SigningKey[32:]
}
