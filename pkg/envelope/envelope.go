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

package envelope

import (
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/uam-project/uam-core/pkg/address"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

// Options carries the optional envelope fields a caller may set.
type Options struct {
	ThreadID  string
	ReplyTo   string
	Expires   *time.Time
	MediaType string
	Metadata  map[string]any
}

// Create builds, encrypts, and signs a new envelope from from to to.
//
// handshake.request envelopes are sealed anonymously (SealedBox) since the
// sender may not yet hold the recipient's trust; every other type is boxed
// with both the sender's signing key and the recipient's verify key.
func Create(from, to string, typ Type, plaintext []byte, signingSeed [uamcrypto.SeedSize]byte, recipientVerifyKey [uamcrypto.VerifyKeySize]byte, opts Options) (Envelope, error) {
	fromAddr, err := address.Parse(from)
	if err != nil {
		return Envelope{}, ErrInvalidAddress
	}
	toAddr, err := address.Parse(to)
	if err != nil {
		return Envelope{}, ErrInvalidAddress
	}

	var nonce [uamcrypto.NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Envelope{}, err
	}

	var payload string
	if typ == TypeHandshakeRequest {
		payload, err = uamcrypto.EncryptSealed(plaintext, recipientVerifyKey)
	} else {
		payload, err = uamcrypto.EncryptBox(plaintext, signingSeed, recipientVerifyKey)
	}
	if err != nil {
		return Envelope{}, err
	}

	env := Envelope{
		Version:     ProtocolVersion,
		MessageID:   uuid.NewString(),
		FromAddress: fromAddr.String(),
		ToAddress:   toAddr.String(),
		Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
		Type:        typ,
		Nonce:       b64(nonce[:]),
		Payload:     payload,
		ThreadID:    opts.ThreadID,
		ReplyTo:     opts.ReplyTo,
		Expires:     opts.Expires,
		MediaType:   opts.MediaType,
		Metadata:    opts.Metadata,
	}

	kp, err := uamcrypto.KeyPairFromSeed(signingSeed)
	if err != nil {
		return Envelope{}, err
	}

	sig, err := sign(env, kp.SigningKey)
	if err != nil {
		return Envelope{}, err
	}
	env.Signature = sig

	wire, err := ToWire(env)
	if err != nil {
		return Envelope{}, err
	}
	encoded, err := json.Marshal(wire)
	if err != nil {
		return Envelope{}, err
	}
	if len(encoded) > MaxSize {
		return Envelope{}, ErrEnvelopeTooLarge
	}

	return env, nil
}

// Verify recomputes the canonical signable image of env and checks its
// signature under senderVerifyKey.
func Verify(env Envelope, senderVerifyKey [uamcrypto.VerifyKeySize]byte) error {
	var sig [uamcrypto.SignatureSize]byte
	raw, err := b64Decode(env.Signature)
	if err != nil || len(raw) != uamcrypto.SignatureSize {
		return ErrSignatureVerification
	}
	copy(sig[:], raw)

	signable := signableMap(env)
	canon, err := uamcrypto.Canonicalize(signable)
	if err != nil {
		return ErrSignatureVerification
	}

	if err := uamcrypto.Verify(canon, sig, senderVerifyKey); err != nil {
		return ErrSignatureVerification
	}
	return nil
}

// Decrypt recovers the plaintext payload of env. For handshake.request
// envelopes only the recipient's own seed is required; every other type
// additionally authenticates against the sender's verify key.
func Decrypt(env Envelope, recipientSeed [uamcrypto.SeedSize]byte, senderVerifyKey [uamcrypto.VerifyKeySize]byte) ([]byte, error) {
	if env.Type == TypeHandshakeRequest {
		pt, err := uamcrypto.DecryptSealed(env.Payload, recipientSeed)
		if err != nil {
			return nil, ErrDecryption
		}
		return pt, nil
	}

	pt, err := uamcrypto.DecryptBox(env.Payload, recipientSeed, senderVerifyKey)
	if err != nil {
		return nil, ErrDecryption
	}
	return pt, nil
}

func sign(env Envelope, signingKey [uamcrypto.SigningKeySize]byte) (string, error) {
	canon, err := uamcrypto.Canonicalize(signableMap(env))
	if err != nil {
		return "", err
	}
	sig := uamcrypto.Sign(canon, signingKey)
	return b64(sig[:]), nil
}

// signableMap builds the field set that participates in the signature:
// every required field plus any present optional field, excluding
// "signature" and "attachments".
func signableMap(env Envelope) map[string]any {
	m := map[string]any{
		"uam_version": env.Version,
		"message_id":  env.MessageID,
		"from":        env.FromAddress,
		"to":          env.ToAddress,
		"timestamp":   env.Timestamp.Format(timestampLayout),
		"type":        string(env.Type),
		"nonce":       env.Nonce,
		"payload":     env.Payload,
	}
	if env.ThreadID != "" {
		m["thread_id"] = env.ThreadID
	}
	if env.ReplyTo != "" {
		m["reply_to"] = env.ReplyTo
	}
	if env.Expires != nil {
		m["expires"] = env.Expires.UTC().Format(timestampLayout)
	}
	if env.MediaType != "" {
		m["media_type"] = env.MediaType
	}
	if len(env.Metadata) > 0 {
		m["metadata"] = env.Metadata
	}
	return m
}

const timestampLayout = "2006-01-02T15:04:05.000Z"
