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

// Package card builds, signs, and verifies self-signed UAM contact cards:
// the identity documents agents exchange during the handshake to learn each
// other's verify key and relay endpoints.
package card

// DefaultPayloadFormats is the payload-format list a new card is stamped
// with unless the caller overrides it.
var DefaultPayloadFormats = []string{"text/plain", "text/markdown"}

// ContactCard is a self-signed identity document.
type ContactCard struct {
	Version     string
	Address     string
	DisplayName string
	Relay       string
	PublicKey   [32]byte
	Signature   string

	Description        string
	System             string
	ConnectionEndpoint string
	VerifiedDomain     string

	// Out-of-signature fields.
	PayloadFormats []string
	Fingerprint    string
	Relays         []string
}

// Error represents a contact-card-specific failure.
type Error struct {
	Code    string
	Message string
}

func (e Error) Error() string {
	return e.Message
}

var (
	ErrInvalidContactCard    = Error{Code: "INVALID_CONTACT_CARD", Message: "card: missing required field(s)"}
	ErrSignatureVerification = Error{Code: "SIGNATURE_VERIFICATION", Message: "card: signature verification failed"}
)
