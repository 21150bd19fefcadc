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

// Package handshake implements the three-phase trust-negotiation FSM:
// a local send to an unknown address emits a HANDSHAKE_REQUEST, an
// inbound request is resolved against the configured Policy (or parked
// pending explicit approval), and the peer's ACCEPT/DENY response pins
// or discards the provisional contact. The FSM emits envelopes via an
// injected Sender; it never reads or writes the network directly.
package handshake

import (
	"context"
	"fmt"

	"github.com/uam-project/uam-core/pkg/transport"
)

// Policy selects how an inbound HANDSHAKE_REQUEST from a previously
// unknown address is resolved.
type Policy string

const (
	// PolicyAutoAccept provisionally trusts any new address on request.
	PolicyAutoAccept Policy = "auto-accept"
	// PolicyAllowlistOnly denies any request from an address not already
	// known to the contact book under a compatible trust state.
	PolicyAllowlistOnly Policy = "allowlist-only"
	// PolicyApprovalRequired parks the request pending an explicit
	// Approve or Deny call.
	PolicyApprovalRequired Policy = "approval-required"
)

// ErrorCode classifies a handshake Error.
type ErrorCode string

const (
	// ErrCodeKeyPinning marks an inbound request whose sender key
	// conflicts with an already-pinned or trusted contact at the same
	// address.
	ErrCodeKeyPinning  ErrorCode = "key_pinning"
	ErrCodeUnknownAddr ErrorCode = "unknown_address"
	ErrCodeInvalidCard ErrorCode = "invalid_card"
)

// Error is the handshake package's typed error.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("handshake: %s: %s", e.Code, e.Message)
}

// Sender is the narrow seam the FSM uses to emit envelopes. The Agent
// orchestrator supplies an implementation backed by its transport.
type Sender interface {
	Send(ctx context.Context, envelope transport.WireEnvelope) error
}
