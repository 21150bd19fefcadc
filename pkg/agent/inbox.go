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

package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/uam-project/uam-core/internal/logger"
	"github.com/uam-project/uam-core/internal/metrics"
	"github.com/uam-project/uam-core/pkg/address"
	"github.com/uam-project/uam-core/pkg/card"
	"github.com/uam-project/uam-core/pkg/contactbook"
	"github.com/uam-project/uam-core/pkg/envelope"
	"github.com/uam-project/uam-core/pkg/handshake"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

// Inbox sweeps expired pending handshakes, pulls up to limit inbound wire
// envelopes from the transport, and returns the decrypted user messages
// among them. Handshake, receipt, and session envelopes are routed
// internally and never appear in the returned slice.
func (a *Agent) Inbox(ctx context.Context, limit int) ([]ReceivedMessage, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, &Error{Code: ErrCodeClosed, Message: "agent not connected"}
	}
	a.mu.Unlock()

	if swept, err := a.fsm.Sweep(time.Now().UTC()); err != nil {
		logger.Warn("agent: inbox sweep failed", logger.String("error", err.Error()))
	} else {
		for _, s := range swept {
			logger.Info("agent: pending handshake expired", logger.String("address", s.Address))
		}
	}

	wireEnvelopes, err := a.transport.Receive(ctx, limit)
	if err != nil {
		return nil, &Error{Code: ErrCodeTransport, Message: err.Error()}
	}

	var out []ReceivedMessage
	for _, wire := range wireEnvelopes {
		msg, ok := a.processInbound(ctx, wire)
		if ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

// processInbound handles one wire envelope: verification, trust
// enforcement, routing of control traffic, and decryption of user
// messages. The bool return is false whenever nothing should be
// surfaced to the caller, whether because the envelope was dropped or
// because it was handled internally.
func (a *Agent) processInbound(ctx context.Context, wire map[string]any) (ReceivedMessage, bool) {
	env, err := envelope.FromWire(wire)
	if err != nil {
		logger.Debug("agent: dropping malformed inbound envelope", logger.String("error", err.Error()))
		return ReceivedMessage{}, false
	}

	if a.store.IsBlocked(env.FromAddress) {
		return ReceivedMessage{}, false
	}

	senderKey, trustState, err := a.senderKey(ctx, env.FromAddress)
	if err != nil {
		logger.Debug("agent: dropping inbound envelope from unresolvable sender",
			logger.String("from", env.FromAddress), logger.String("error", err.Error()))
		return ReceivedMessage{}, false
	}

	if err := envelope.Verify(env, senderKey); err != nil {
		metrics.MessagesProcessed.WithLabelValues("text", "verification_failed").Inc()
		return ReceivedMessage{}, false
	}

	if handled := a.routeControl(ctx, env, senderKey); handled {
		return ReceivedMessage{}, false
	}

	if env.Type != envelope.TypeMessage {
		return ReceivedMessage{}, false
	}

	if a.cfg.Policy != handshake.PolicyAutoAccept && !trustedEnough(trustState) {
		metrics.MessagesProcessed.WithLabelValues("text", "untrusted_sender").Inc()
		return ReceivedMessage{}, false
	}

	plaintext, err := envelope.Decrypt(env, a.kp.Seed, senderKey)
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("text", "decryption_failed").Inc()
		return ReceivedMessage{}, false
	}

	a.emitReadReceipt(ctx, env, senderKey)

	metrics.MessagesProcessed.WithLabelValues("text", "received").Inc()
	return ReceivedMessage{
		MessageID: env.MessageID,
		From:      env.FromAddress,
		Text:      string(plaintext),
		ThreadID:  env.ThreadID,
		MediaType: env.MediaType,
		Metadata:  env.Metadata,
		Timestamp: env.Timestamp,
	}, true
}

// routeControl dispatches handshake.*, receipt.*, and session.* envelopes
// to the FSM (or simply acknowledges them) and reports whether it
// consumed the envelope.
func (a *Agent) routeControl(ctx context.Context, env envelope.Envelope, senderKey [uamcrypto.VerifyKeySize]byte) bool {
	switch env.Type {
	case envelope.TypeHandshakeRequest:
		plaintext, err := envelope.Decrypt(env, a.kp.Seed, senderKey)
		if err != nil {
			return true
		}
		var d map[string]any
		if json.Unmarshal(plaintext, &d) != nil {
			return true
		}
		peerCard, err := card.FromDict(d, true)
		if err != nil {
			return true
		}
		if err := a.fsm.OnInboundRequest(ctx, env.FromAddress, senderKey, peerCard.DisplayName); err != nil {
			logger.Warn("agent: inbound handshake request rejected",
				logger.String("from", env.FromAddress), logger.String("error", err.Error()))
		}
		return true

	case envelope.TypeHandshakeAccept:
		if err := a.fsm.OnInboundAccept(env.FromAddress); err != nil {
			logger.Warn("agent: inbound handshake accept failed",
				logger.String("from", env.FromAddress), logger.String("error", err.Error()))
		}
		return true

	case envelope.TypeHandshakeDeny:
		a.fsm.OnInboundDeny(env.FromAddress)
		return true

	case envelope.TypeReceiptDelivered, envelope.TypeReceiptRead, envelope.TypeReceiptFailed,
		envelope.TypeSessionRequest, envelope.TypeSessionAccept, envelope.TypeSessionDecline, envelope.TypeSessionEnd:
		return true

	default:
		return false
	}
}

// emitReadReceipt sends a best-effort receipt.read for a received user
// message. Failures are logged, not surfaced, since a receipt is not
// part of the message delivery guarantee.
func (a *Agent) emitReadReceipt(ctx context.Context, env envelope.Envelope, senderKey [uamcrypto.VerifyKeySize]byte) {
	receipt, err := envelope.Create(a.selfAddress, env.FromAddress, envelope.TypeReceiptRead, []byte(env.MessageID), a.kp.Seed, senderKey, envelope.Options{})
	if err != nil {
		return
	}
	wire, err := envelope.ToWire(receipt)
	if err != nil {
		return
	}
	if err := a.transport.Send(ctx, wire); err != nil {
		logger.Debug("agent: receipt.read delivery failed",
			logger.String("to", env.FromAddress), logger.String("error", err.Error()))
	}
}

// senderKey returns the sender's verify key and trust state, resolving
// and caching it as unverified on a contact-book miss.
func (a *Agent) senderKey(ctx context.Context, from string) ([uamcrypto.VerifyKeySize]byte, contactbook.TrustState, error) {
	if c, ok, _ := a.store.GetContact(from); ok {
		return c.PublicKey, c.TrustState, nil
	}

	addr, err := address.Parse(from)
	if err != nil {
		return [uamcrypto.VerifyKeySize]byte{}, "", err
	}

	raw, err := a.resolver.ResolvePublicKey(ctx, addr.Agent(), addr.Domain())
	if err != nil {
		return [uamcrypto.VerifyKeySize]byte{}, "", err
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(decoded) != uamcrypto.VerifyKeySize {
		return [uamcrypto.VerifyKeySize]byte{}, "", &Error{Code: ErrCodeResolution, Message: "resolver returned a malformed public key"}
	}
	var key [uamcrypto.VerifyKeySize]byte
	copy(key[:], decoded)

	if _, err := a.store.AddContact(contactbook.ContactWrite{
		Address:     from,
		PublicKey:   key,
		DisplayName: addr.Agent(),
		TrustState:  contactbook.TrustUnverified,
	}); err != nil {
		return key, "", err
	}

	return key, contactbook.TrustUnverified, nil
}

func trustedEnough(state contactbook.TrustState) bool {
	switch state {
	case contactbook.TrustTrusted, contactbook.TrustVerified, contactbook.TrustPinned:
		return true
	default:
		return false
	}
}
