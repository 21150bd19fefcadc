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

// Package envelope builds, signs, verifies and size-checks the UAM message
// envelope: the signed, encrypted wrapper carrying a single protocol message
// between two agent addresses.
package envelope

import "time"

// Type enumerates the envelope's message kind.
type Type string

const (
	TypeMessage          Type = "message"
	TypeHandshakeRequest Type = "handshake.request"
	TypeHandshakeAccept  Type = "handshake.accept"
	TypeHandshakeDeny    Type = "handshake.deny"
	TypeReceiptDelivered Type = "receipt.delivered"
	TypeReceiptRead      Type = "receipt.read"
	TypeReceiptFailed    Type = "receipt.failed"
	TypeSessionRequest   Type = "session.request"
	TypeSessionAccept    Type = "session.accept"
	TypeSessionDecline   Type = "session.decline"
	TypeSessionEnd       Type = "session.end"
)

// MaxSize is the largest a compact-JSON-serialized envelope may be.
const MaxSize = 65536

// ProtocolVersion is the current wire "uam_version".
const ProtocolVersion = "0.1"

// Envelope is the internal representation of a signed, encrypted UAM
// message. FromAddress/ToAddress correspond to the wire "from"/"to" fields.
type Envelope struct {
	Version     string
	MessageID   string
	FromAddress string
	ToAddress   string
	Timestamp   time.Time
	Type        Type
	Nonce       string
	Payload     string
	Signature   string

	ThreadID    string
	ReplyTo     string
	Expires     *time.Time
	MediaType   string
	Metadata    map[string]any
	Attachments []map[string]any
}

// Error represents an envelope-specific failure, identified by Code so
// callers can branch without string matching.
type Error struct {
	Code    string
	Message string
}

func (e Error) Error() string {
	return e.Message
}

// Sentinel envelope errors. Code values mirror the wire-level failure
// taxonomy callers are expected to branch on.
var (
	ErrInvalidAddress        = Error{Code: "INVALID_ADDRESS", Message: "envelope: invalid from/to address"}
	ErrEnvelopeTooLarge      = Error{Code: "ENVELOPE_TOO_LARGE", Message: "envelope: serialized size exceeds maximum"}
	ErrInvalidEnvelope       = Error{Code: "INVALID_ENVELOPE", Message: "envelope: missing required field(s)"}
	ErrSignatureVerification = Error{Code: "SIGNATURE_VERIFICATION", Message: "envelope: signature verification failed"}
	ErrDecryption            = Error{Code: "DECRYPTION", Message: "envelope: payload decryption failed"}
)
