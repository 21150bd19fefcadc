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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/uam-project/uam-core/internal/metrics"
	"github.com/uam-project/uam-core/pkg/address"
	"github.com/uam-project/uam-core/pkg/contactbook"
	"github.com/uam-project/uam-core/pkg/envelope"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
	"github.com/uam-project/uam-core/pkg/version"
)

// mapEnvelopeError translates an envelope package error into the
// send-operation error kind spec.md §4.10/§7 names for it; anything
// envelope.Create/ToWire returns outside the explicit sentinel set is
// surfaced as Encryption.
func mapEnvelopeError(err error) *Error {
	var envErr envelope.Error
	if errors.As(err, &envErr) {
		switch envErr.Code {
		case envelope.ErrInvalidAddress.Code:
			return &Error{Code: ErrCodeInvalidAddress, Message: err.Error()}
		case envelope.ErrEnvelopeTooLarge.Code:
			return &Error{Code: ErrCodeEnvelopeTooLarge, Message: err.Error()}
		}
	}
	return &Error{Code: ErrCodeEncryption, Message: err.Error()}
}

// Send resolves to, initiates a handshake on first contact, and delivers
// text as a signed, encrypted message envelope via to's own relay list
// (falling back to this agent's configured relay when the contact carries
// none). It returns the envelope's message ID.
func (a *Agent) Send(ctx context.Context, to, text string, opts SendOptions) (messageID string, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.MessagesProcessed.WithLabelValues("text", status).Inc()
		metrics.MessageProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return "", &Error{Code: ErrCodeClosed, Message: "agent not connected"}
	}
	a.mu.Unlock()

	toAddr, perr := address.Parse(to)
	if perr != nil {
		return "", &Error{Code: ErrCodeInvalidAddress, Message: perr.Error()}
	}

	peerKey, relays, firstContact, err := a.resolvePeer(ctx, toAddr)
	if err != nil {
		return "", err
	}

	if firstContact {
		if err := a.fsm.OnLocalSend(ctx, toAddr.String(), peerKey); err != nil {
			return "", &Error{Code: ErrCodeRegistration, Message: err.Error()}
		}
	}

	env, err := envelope.Create(a.selfAddress, toAddr.String(), envelope.TypeMessage, []byte(text), a.kp.Seed, peerKey, envelope.Options{
		ThreadID: opts.ThreadID,
		Expires:  opts.Expires,
	})
	if err != nil {
		return "", mapEnvelopeError(err)
	}

	wire, err := envelope.ToWire(env)
	if err != nil {
		return "", mapEnvelopeError(err)
	}
	body, err := json.Marshal(wire)
	if err != nil {
		return "", &Error{Code: ErrCodeEncryption, Message: err.Error()}
	}

	if err := a.deliverWithFailover(ctx, relays, body); err != nil {
		return "", &Error{Code: ErrCodeTransport, Message: err.Error()}
	}

	return env.MessageID, nil
}

// resolvePeer returns the recipient's verify key and candidate relay
// URLs, using the contact book as a cache and the resolver on a miss.
// firstContact is true when the address had never been seen before,
// signalling the caller to kick off a handshake. For a pinned or
// verified contact, the key is re-resolved and compared against the
// stored value; a mismatch is a hard KeyPinning failure (spec.md §7,
// §8 property 6) rather than a silent overwrite.
func (a *Agent) resolvePeer(ctx context.Context, to address.Address) (key [uamcrypto.VerifyKeySize]byte, relays []string, firstContact bool, err error) {
	if c, ok, _ := a.store.GetContact(to.String()); ok {
		relays = c.Relays
		if len(relays) == 0 && c.Relay != "" {
			relays = []string{c.Relay}
		}
		if c.TrustState == contactbook.TrustPinned || c.TrustState == contactbook.TrustVerified {
			if err := a.checkPinnedKeyUnchanged(ctx, to, c); err != nil {
				return key, nil, false, err
			}
		}
		return c.PublicKey, relays, false, nil
	}

	raw, rerr := a.resolver.ResolvePublicKey(ctx, to.Agent(), to.Domain())
	if rerr != nil {
		return key, nil, false, &Error{Code: ErrCodeResolution, Message: rerr.Error()}
	}
	decoded, derr := base64.RawURLEncoding.DecodeString(raw)
	if derr != nil || len(decoded) != uamcrypto.VerifyKeySize {
		return key, nil, false, &Error{Code: ErrCodeResolution, Message: "resolver returned a malformed public key"}
	}
	copy(key[:], decoded)

	if _, err := a.store.AddContact(contactbook.ContactWrite{
		Address:     to.String(),
		PublicKey:   key,
		DisplayName: to.Agent(),
		TrustState:  contactbook.TrustUnverified,
	}); err != nil {
		return key, nil, false, &Error{Code: ErrCodeResolution, Message: err.Error()}
	}

	return key, []string{a.cfg.RelayURL}, true, nil
}

// checkPinnedKeyUnchanged re-resolves c's public key and compares it
// against the pinned value. A resolver miss is not itself a pinning
// failure (the peer's own infrastructure may be temporarily down); only
// a key that resolves to something different is.
func (a *Agent) checkPinnedKeyUnchanged(ctx context.Context, to address.Address, c contactbook.Contact) error {
	raw, rerr := a.resolver.ResolvePublicKey(ctx, to.Agent(), to.Domain())
	if rerr != nil {
		return nil
	}
	decoded, derr := base64.RawURLEncoding.DecodeString(raw)
	if derr != nil || len(decoded) != uamcrypto.VerifyKeySize {
		return nil
	}
	if !bytes.Equal(decoded, c.PublicKey[:]) {
		return &Error{Code: ErrCodeKeyPinning, Message: fmt.Sprintf("%s is pinned to a different key than the resolver now returns", to.String())}
	}
	return nil
}

// deliverWithFailover tries each relay in turn, normalizing push-style
// WebSocket URLs to their HTTP send-endpoint form, and returns the first
// success. All candidates failing surfaces the last error.
func (a *Agent) deliverWithFailover(ctx context.Context, relays []string, body []byte) error {
	if len(relays) == 0 {
		relays = []string{a.cfg.RelayURL}
	}

	var lastErr error
	for _, relay := range relays {
		base := normalizeRelayURL(relay)
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := a.postEnvelope(sendCtx, base, body)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

func (a *Agent) postEnvelope(ctx context.Context, relayBase string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, relayBase+"/api/v1/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("relay rejected send (%d): %s", resp.StatusCode, string(payload))
	}
	return nil
}

// normalizeRelayURL turns a push-style relay URL into the base URL its
// HTTP send endpoint lives under: strip a trailing "/ws", a trailing
// slash, and rewrite the ws(s) scheme to http(s).
func normalizeRelayURL(raw string) string {
	u := strings.TrimSuffix(raw, "/")
	u = strings.TrimSuffix(u, "/ws")
	switch {
	case strings.HasPrefix(u, "wss://"):
		u = "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		u = "http://" + strings.TrimPrefix(u, "ws://")
	}
	return u
}
