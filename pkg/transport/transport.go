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

// Package transport is the abstract seam between the Agent and the wire:
// connect/disconnect/send/receive/listen over raw envelope dicts. The
// pull and push subpackages provide the request/response and persistent
// push implementations.
package transport

import (
	"context"
	"errors"
)

// WireEnvelope is an envelope as decoded from (or about to be encoded to)
// JSON — the shape envelope.ToWire/FromWire exchange with this package.
type WireEnvelope = map[string]any

// ErrListenNotSupported is returned by Listen on transports that cannot
// push inbound envelopes to a callback (the pull transport).
var ErrListenNotSupported = errors.New("transport: listen not supported")

// Handler receives one inbound envelope dispatched by a push transport's
// Listen.
type Handler func(WireEnvelope)

// Transport is the abstract contract every concrete transport implements.
type Transport interface {
	// Connect establishes whatever the transport needs; a no-op is a
	// valid implementation.
	Connect(ctx context.Context) error
	// Disconnect releases resources. Idempotent.
	Disconnect(ctx context.Context) error
	// Send delivers one wire envelope. May fail synchronously with a
	// transient I/O error.
	Send(ctx context.Context, envelope WireEnvelope) error
	// Receive returns up to limit inbound wire envelopes. An empty
	// slice is success, not an error.
	Receive(ctx context.Context, limit int) ([]WireEnvelope, error)
	// Listen registers a push handler. Must fail with
	// ErrListenNotSupported on the pull transport; must succeed and
	// dispatch each inbound envelope exactly once on the push transport.
	Listen(ctx context.Context, handler Handler) error
}
