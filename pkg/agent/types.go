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

// Package agent is the top-level UAM orchestrator: it wires together a
// key store, contact book, resolver, transport, and handshake FSM behind
// the connect/send/inbox/approve/deny/block/unblock/contact_card/close
// surface. Connect, Send, Inbox, Approve, Deny and Close take a
// context.Context first argument; Pending, Block, Unblock and ContactCard
// do not.
package agent

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/uam-project/uam-core/pkg/contactbook"
	"github.com/uam-project/uam-core/pkg/handshake"
	"github.com/uam-project/uam-core/pkg/resolver"
)

// ErrorCode classifies an agent-level Error, per the error taxonomy's
// "kinds, not types" convention.
type ErrorCode string

const (
	ErrCodeInvalidAddress   ErrorCode = "invalid_address"
	ErrCodeResolution       ErrorCode = "resolution"
	ErrCodeEncryption       ErrorCode = "encryption"
	ErrCodeEnvelopeTooLarge ErrorCode = "envelope_too_large"
	ErrCodeRegistration     ErrorCode = "registration"
	ErrCodeTransport        ErrorCode = "transport"
	ErrCodeKeyPinning       ErrorCode = "key_pinning"
	ErrCodeClosed           ErrorCode = "closed"
)

// Error is the agent package's typed error.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("agent: %s: %s", e.Code, e.Message)
}

// ReceivedMessage is one decrypted inbound user message returned by
// Inbox. Instances are immutable once constructed.
type ReceivedMessage struct {
	MessageID string
	From      string
	Text      string
	ThreadID  string
	MediaType string
	Metadata  map[string]any
	Timestamp time.Time
}

// SendOptions carries the optional fields a Send call may set.
type SendOptions struct {
	ThreadID string
	Expires  *time.Time
}

// TransportKind selects which transport.Transport implementation Connect
// builds.
type TransportKind string

const (
	TransportPush TransportKind = "push"
	TransportPull TransportKind = "pull"
)

// Config is the fixed configuration an Agent is built with.
type Config struct {
	// AgentName and RelayDomain together form this agent's own address
	// (AgentName::RelayDomain) once registered.
	AgentName   string
	RelayDomain string

	// DataDir is where the key store and (memory-backed) contact state
	// persist; see pkg/keystore and pkg/keystore's sibling contact book.
	DataDir string

	RelayURL     string
	RelayWSURL   string
	Transport    TransportKind
	AutoRegister bool

	Policy handshake.Policy
	Store  contactbook.Store

	Chain       resolver.ChainResolver
	DNSResolver *net.Resolver

	HTTPClient *http.Client

	// HousekeepingInterval is how often the pending-handshake sweep runs.
	// Zero selects the 1-hour default.
	HousekeepingInterval time.Duration
}

// connectTimeout bounds the transport's Connect call inside
// Agent.Connect; relay registration runs under the caller's context.
const connectTimeout = 30 * time.Second

// sendTimeout bounds each multi-relay failover POST.
const sendTimeout = 10 * time.Second

// defaultHousekeepingInterval is how often Connect's background
// goroutine sweeps expired pending handshakes absent an override.
const defaultHousekeepingInterval = time.Hour
