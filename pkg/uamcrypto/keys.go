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
	"crypto/ed25519"
	"crypto/rand"
	"time"

	"github.com/uam-project/uam-core/internal/metrics"
)

// GenerateKeyPair creates a fresh random KeyPair using the OS CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	var seed [SeedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return KeyPair{}, err
	}
	return KeyPairFromSeed(seed)
}

// KeyPairFromSeed derives a KeyPair deterministically from a 32-byte seed.
func KeyPairFromSeed(seed [SeedSize]byte) (KeyPair, error) {
	signingKey := ed25519.NewKeyFromSeed(seed[:])

	kp := KeyPair{Seed: seed}
	copy(kp.SigningKey[:], signingKey)
	copy(kp.VerifyKey[:], signingKey[SeedSize:])
	return kp, nil
}

// Sign produces a detached Ed25519 signature over message.
func Sign(message []byte, signingKey [SigningKeySize]byte) [SignatureSize]byte {
	start := time.Now()
	sig := ed25519.Sign(ed25519.PrivateKey(signingKey[:]), message)
	metrics.CryptoOperations.WithLabelValues("sign", "ed25519").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("sign", "ed25519").Observe(time.Since(start).Seconds())

	var out [SignatureSize]byte
	copy(out[:], sig)
	return out
}

// Verify checks a detached Ed25519 signature over message under verifyKey.
func Verify(message []byte, signature [SignatureSize]byte, verifyKey [VerifyKeySize]byte) error {
	start := time.Now()
	ok := ed25519.Verify(ed25519.PublicKey(verifyKey[:]), message, signature[:])
	metrics.CryptoOperations.WithLabelValues("verify", "ed25519").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("verify", "ed25519").Observe(time.Since(start).Seconds())
	if !ok {
		metrics.CryptoErrors.WithLabelValues("verify").Inc()
		return ErrSignatureVerification
	}
	return nil
}
