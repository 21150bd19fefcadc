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
	"crypto/sha512"

	"filippo.io/edwards25519"
)

// verifyKeyToX25519 converts an Ed25519 verify (public) key into its
// Curve25519 (Montgomery form) equivalent by decompressing the Edwards
// point and projecting it.
func verifyKeyToX25519(verifyKey [VerifyKeySize]byte) ([32]byte, error) {
	p, err := new(edwards25519.Point).SetBytes(verifyKey[:])
	if err != nil {
		return [32]byte{}, ErrInvalidKey
	}
	var out [32]byte
	copy(out[:], p.BytesMontgomery())
	return out, nil
}

// signingKeyToX25519 converts an Ed25519 signing (private) key's seed into
// the corresponding Curve25519 scalar, per RFC 8032 §5.1.5.
func signingKeyToX25519(seed [SeedSize]byte) [32]byte {
	h := sha512.Sum512(seed[:])
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64

	var out [32]byte
	copy(out[:], h[:32])
	return out
}
