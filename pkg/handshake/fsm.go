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

package handshake

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/uam-project/uam-core/internal/metrics"
	"github.com/uam-project/uam-core/pkg/card"
	"github.com/uam-project/uam-core/pkg/contactbook"
	"github.com/uam-project/uam-core/pkg/envelope"
	"github.com/uam-project/uam-core/pkg/transport"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

// SweptHandshake is one pending request dropped by Sweep, returned so the
// caller can log or surface it; the peer itself is told only through
// Sweep's best-effort receipt.failed.
type SweptHandshake struct {
	Address    string
	ReceivedAt time.Time
}

// FSM is the handshake state machine for a single local agent. It reads
// and writes a contactbook.Store and emits envelopes through a Sender;
// it holds no transport of its own.
type FSM struct {
	store  contactbook.Store
	policy Policy
	sender Sender

	selfAddress string
	selfSeed    [uamcrypto.SeedSize]byte
	selfCard    card.ContactCard

	sf singleflight.Group
}

// Config carries the fixed identity and policy an FSM is built with.
type Config struct {
	Store       contactbook.Store
	Policy      Policy
	Sender      Sender
	SelfAddress string
	SelfSeed    [uamcrypto.SeedSize]byte
	SelfCard    card.ContactCard
}

// New builds an FSM from cfg.
func New(cfg Config) *FSM {
	return &FSM{
		store:       cfg.Store,
		policy:      cfg.Policy,
		sender:      cfg.Sender,
		selfAddress: cfg.SelfAddress,
		selfSeed:    cfg.SelfSeed,
		selfCard:    cfg.SelfCard,
	}
}

// OnLocalSend is called before a message send to peerAddress/peerVerifyKey
// whose contact is not yet TrustPinned/TrustTrusted/TrustVerified. It
// emits exactly one HANDSHAKE_REQUEST per address even under concurrent
// calls (deduplicated via singleflight) and marks the contact
// TrustHandshakeSent.
func (f *FSM) OnLocalSend(ctx context.Context, peerAddress string, peerVerifyKey [uamcrypto.VerifyKeySize]byte) error {
	_, err, _ := f.sf.Do(peerAddress, func() (any, error) {
		existing, ok, err := f.store.GetContact(peerAddress)
		if err != nil {
			return nil, err
		}
		if ok && existing.TrustState == contactbook.TrustHandshakeSent {
			return nil, nil
		}

		env, err := f.buildEnvelope(peerAddress, peerVerifyKey, envelope.TypeHandshakeRequest, card.ToDict(f.selfCard))
		if err != nil {
			return nil, err
		}
		if err := f.emit(ctx, env); err != nil {
			return nil, err
		}
		metrics.HandshakesInitiated.WithLabelValues("client").Inc()

		_, err = f.store.AddContact(contactbook.ContactWrite{
			Address:     peerAddress,
			PublicKey:   peerVerifyKey,
			DisplayName: existing.DisplayName,
			TrustState:  contactbook.TrustHandshakeSent,
		})
		return nil, err
	})
	return err
}

// OnInboundRequest processes a decoded HANDSHAKE_REQUEST from peerAddress
// carrying peerVerifyKey and the sender's contact card payload. A sender
// key that conflicts with an already-pinned or trusted contact at the
// same address is rejected with ErrCodeKeyPinning regardless of Policy.
func (f *FSM) OnInboundRequest(ctx context.Context, peerAddress string, peerVerifyKey [uamcrypto.VerifyKeySize]byte, displayName string) error {
	existing, ok, err := f.store.GetContact(peerAddress)
	if err != nil {
		return err
	}
	if ok && existing.PublicKey != peerVerifyKey &&
		(existing.TrustState == contactbook.TrustPinned || existing.TrustState == contactbook.TrustTrusted || existing.TrustState == contactbook.TrustVerified) {
		metrics.HandshakesFailed.WithLabelValues("key_pinning").Inc()
		return &Error{Code: ErrCodeKeyPinning, Message: fmt.Sprintf("handshake: %s is already pinned under a different key", peerAddress)}
	}
	metrics.HandshakesInitiated.WithLabelValues("server").Inc()

	switch f.policy {
	case PolicyAutoAccept:
		if _, err := f.store.AddContact(contactbook.ContactWrite{
			Address:     peerAddress,
			PublicKey:   peerVerifyKey,
			DisplayName: displayName,
			TrustState:  contactbook.TrustProvisional,
			TrustSource: strPtr("auto-accept"),
		}); err != nil {
			return err
		}
		if err := f.respond(ctx, peerAddress, peerVerifyKey, envelope.TypeHandshakeAccept); err != nil {
			return err
		}
		metrics.HandshakesCompleted.WithLabelValues("success").Inc()
		return nil

	case PolicyAllowlistOnly:
		if !ok || existing.TrustState == contactbook.TrustUnknown {
			metrics.HandshakesFailed.WithLabelValues("denied").Inc()
			return f.respond(ctx, peerAddress, peerVerifyKey, envelope.TypeHandshakeDeny)
		}
		if err := f.respond(ctx, peerAddress, peerVerifyKey, envelope.TypeHandshakeAccept); err != nil {
			return err
		}
		metrics.HandshakesCompleted.WithLabelValues("success").Inc()
		return nil

	case PolicyApprovalRequired:
		cardJSON, err := json.Marshal(card.ToDict(card.ContactCard{Address: peerAddress, DisplayName: displayName, PublicKey: peerVerifyKey}))
		if err != nil {
			return err
		}
		return f.store.AddPending(contactbook.PendingHandshake{
			Address:         peerAddress,
			ContactCardJSON: string(cardJSON),
			ReceivedAt:      time.Now().UTC(),
		})

	default:
		return &Error{Code: ErrCodeInvalidCard, Message: fmt.Sprintf("handshake: unknown policy %q", f.policy)}
	}
}

// Approve accepts a parked pending request, pinning the contact as
// TrustTrusted with trust_source "explicit-approval" and emitting a
// HANDSHAKE_ACCEPT.
func (f *FSM) Approve(ctx context.Context, peerAddress string, peerVerifyKey [uamcrypto.VerifyKeySize]byte) error {
	pending, ok, err := f.store.GetPending(peerAddress)
	if err != nil {
		return err
	}
	if !ok {
		return &Error{Code: ErrCodeUnknownAddr, Message: fmt.Sprintf("handshake: no pending request for %s", peerAddress)}
	}

	displayName, err := displayNameFromCardJSON(pending.ContactCardJSON)
	if err != nil {
		return err
	}

	if _, err := f.store.AddContact(contactbook.ContactWrite{
		Address:     peerAddress,
		PublicKey:   peerVerifyKey,
		DisplayName: displayName,
		TrustState:  contactbook.TrustTrusted,
		TrustSource: strPtr("explicit-approval"),
	}); err != nil {
		return err
	}
	if err := f.store.DropPending(peerAddress); err != nil {
		return err
	}
	if err := f.respond(ctx, peerAddress, peerVerifyKey, envelope.TypeHandshakeAccept); err != nil {
		return err
	}
	metrics.HandshakesCompleted.WithLabelValues("success").Inc()
	metrics.HandshakeDuration.WithLabelValues("approval").Observe(time.Since(pending.ReceivedAt).Seconds())
	return nil
}

// Deny drops a parked pending request and emits a HANDSHAKE_DENY.
func (f *FSM) Deny(ctx context.Context, peerAddress string, peerVerifyKey [uamcrypto.VerifyKeySize]byte) error {
	pending, ok, err := f.store.GetPending(peerAddress)
	if err != nil {
		return err
	}

	if err := f.store.DropPending(peerAddress); err != nil {
		return err
	}
	if err := f.respond(ctx, peerAddress, peerVerifyKey, envelope.TypeHandshakeDeny); err != nil {
		return err
	}
	metrics.HandshakesFailed.WithLabelValues("denied").Inc()
	if ok {
		metrics.HandshakeDuration.WithLabelValues("approval").Observe(time.Since(pending.ReceivedAt).Seconds())
	}
	return nil
}

// OnInboundAccept processes a decoded HANDSHAKE_ACCEPT from peerAddress,
// pinning the contact: TrustPinned with PinnedAt stamped to now.
func (f *FSM) OnInboundAccept(peerAddress string) error {
	now := time.Now().UTC()
	return f.store.SetTrustState(peerAddress, contactbook.TrustPinned, &now)
}

// OnInboundDeny processes a decoded HANDSHAKE_DENY; the contact's state
// is left untouched since no trust was ever extended.
func (f *FSM) OnInboundDeny(peerAddress string) {
}

// Sweep drops every pending request older than contactbook.PendingExpiry
// as of now, emitting a HANDSHAKE_FAILED-reporting RECEIPT_FAILED (reason
// handshake_expired) to each swept peer's card-carried key, and returns
// what was swept for the caller to log or report. A receipt send failure
// (the peer's card is malformed, or delivery itself fails) never blocks
// the drop: the pending row is still garbage beyond its TTL either way.
func (f *FSM) Sweep(now time.Time) ([]SweptHandshake, error) {
	expired, err := f.store.ExpiredPending(now)
	if err != nil {
		return nil, err
	}

	swept := make([]SweptHandshake, 0, len(expired))
	for _, p := range expired {
		f.emitHandshakeExpired(p)
		metrics.HandshakesFailed.WithLabelValues("timeout").Inc()
		metrics.HandshakeDuration.WithLabelValues("approval").Observe(now.Sub(p.ReceivedAt).Seconds())

		if err := f.store.DropPending(p.Address); err != nil {
			return swept, err
		}
		swept = append(swept, SweptHandshake{Address: p.Address, ReceivedAt: p.ReceivedAt})
	}
	return swept, nil
}

// emitHandshakeExpired sends the receipt.failed spec.md §3/§4.6/§4.9
// mandate on a swept pending request. It is best-effort: the peer's
// public key comes from its own (unverified-by-signature) card payload,
// the only identity material a never-trust-established pending entry
// carries.
func (f *FSM) emitHandshakeExpired(p contactbook.PendingHandshake) {
	peerKey, err := peerKeyFromCardJSON(p.ContactCardJSON)
	if err != nil {
		return
	}

	payload, err := json.Marshal(map[string]any{"reason": "handshake_expired"})
	if err != nil {
		return
	}
	env, err := f.buildEnvelope(p.Address, peerKey, envelope.TypeReceiptFailed, payload)
	if err != nil {
		return
	}
	_ = f.emit(context.Background(), env)
}

func (f *FSM) respond(ctx context.Context, peerAddress string, peerVerifyKey [uamcrypto.VerifyKeySize]byte, typ envelope.Type) error {
	env, err := f.buildEnvelope(peerAddress, peerVerifyKey, typ, map[string]any{})
	if err != nil {
		return err
	}
	return f.emit(ctx, env)
}

func (f *FSM) buildEnvelope(peerAddress string, peerVerifyKey [uamcrypto.VerifyKeySize]byte, typ envelope.Type, payload map[string]any) (envelope.Envelope, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Create(f.selfAddress, peerAddress, typ, plaintext, f.selfSeed, peerVerifyKey, envelope.Options{})
}

func (f *FSM) emit(ctx context.Context, env envelope.Envelope) error {
	wire, err := envelope.ToWire(env)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	var m transport.WireEnvelope
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	return f.sender.Send(ctx, m)
}

func displayNameFromCardJSON(cardJSON string) (string, error) {
	var d map[string]any
	if err := json.Unmarshal([]byte(cardJSON), &d); err != nil {
		return "", err
	}
	name, _ := d["display_name"].(string)
	return name, nil
}

// peerKeyFromCardJSON decodes the public_key field out of a pending
// request's stored card payload, without requiring its self-signature to
// verify — the card is read here only to learn where to address a
// receipt, not to extend trust.
func peerKeyFromCardJSON(cardJSON string) ([uamcrypto.VerifyKeySize]byte, error) {
	var key [uamcrypto.VerifyKeySize]byte

	var d map[string]any
	if err := json.Unmarshal([]byte(cardJSON), &d); err != nil {
		return key, err
	}
	peerCard, err := card.FromDict(d, false)
	if err != nil {
		return key, err
	}
	return peerCard.PublicKey, nil
}

func strPtr(s string) *string { return &s }
