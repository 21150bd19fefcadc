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

// Package contactbook is the local trust store: contacts, pending
// handshakes, and block patterns, each with an in-memory cache kept
// consistent with the durable backend under the same critical section.
package contactbook

import (
	"errors"
	"time"
)

// ErrContactNotFound is returned by SetTrustState when no contact row
// exists for the given address.
var ErrContactNotFound = errors.New("contactbook: contact not found")

// TrustState is a contact's position in the TOFU trust lifecycle.
type TrustState string

const (
	TrustUnknown       TrustState = "unknown"
	TrustUnverified    TrustState = "unverified"
	TrustHandshakeSent TrustState = "handshake-sent"
	TrustProvisional   TrustState = "provisional"
	TrustTrusted       TrustState = "trusted"
	TrustPinned        TrustState = "pinned"
	TrustVerified      TrustState = "verified"
)

// Contact is one row of the contacts table.
type Contact struct {
	Address     string
	PublicKey   [32]byte
	DisplayName string
	TrustState  TrustState
	TrustSource string
	Relay       string
	Relays      []string
	PinnedAt    *time.Time
	FirstSeen   time.Time
	LastSeen    time.Time
}

// PendingHandshake is an inbound handshake request awaiting user approval.
type PendingHandshake struct {
	Address         string
	ContactCardJSON string
	ReceivedAt      time.Time
}

// BlockPattern is an exact `agent::domain` or wildcard `*::domain` entry.
type BlockPattern struct {
	Pattern   string
	BlockedAt time.Time
}

// PendingExpiry is how long a pending handshake may sit unanswered before
// it is swept and reported via a receipt.failed.
const PendingExpiry = 7 * 24 * time.Hour

// ContactWrite carries the fields add_contact may update. A nil pointer
// field means "leave the existing value alone" (the coalescing rule);
// PublicKey, DisplayName, and TrustState are always applied since
// add_contact is always called with fresh values for them.
type ContactWrite struct {
	Address     string
	PublicKey   [32]byte
	DisplayName string
	TrustState  TrustState
	TrustSource *string
	Relay       *string
	Relays      []string
}

// Store is the durable trust store interface; Memory and Postgres both
// implement it.
type Store interface {
	// AddContact upserts a contact, applying the coalescing rule to
	// TrustSource, Relay, and Relays: a nil field preserves the
	// previously stored value rather than overwriting it with empty.
	AddContact(w ContactWrite) (Contact, error)
	GetContact(address string) (Contact, bool, error)
	SetTrustState(address string, state TrustState, pinnedAt *time.Time) error
	IsKnown(address string) bool

	AddPending(p PendingHandshake) error
	GetPending(address string) (PendingHandshake, bool, error)
	DropPending(address string) error
	ListPending() ([]PendingHandshake, error)
	ExpiredPending(now time.Time) ([]PendingHandshake, error)

	Block(pattern string) error
	Unblock(pattern string) error
	IsBlocked(address string) bool

	Close() error
}
