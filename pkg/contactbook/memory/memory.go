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

// Package memory is an in-process contactbook.Store backed by maps,
// suitable for single-process agents and tests.
package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/uam-project/uam-core/pkg/contactbook"
)

// Store is an in-memory contactbook.Store. All exported methods are safe
// for concurrent use.
type Store struct {
	mu sync.RWMutex

	contacts map[string]contactbook.Contact
	pending  map[string]contactbook.PendingHandshake
	blocked  map[string]time.Time

	knownAddresses map[string]struct{}
	exactBlocked   map[string]struct{}
	domainBlocked  map[string]struct{}
}

// New returns an empty Store with its caches primed.
func New() *Store {
	return &Store{
		contacts:       make(map[string]contactbook.Contact),
		pending:        make(map[string]contactbook.PendingHandshake),
		blocked:        make(map[string]time.Time),
		knownAddresses: make(map[string]struct{}),
		exactBlocked:   make(map[string]struct{}),
		domainBlocked:  make(map[string]struct{}),
	}
}

func (s *Store) AddContact(w contactbook.ContactWrite) (contactbook.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.contacts[w.Address]

	c := contactbook.Contact{
		Address:     w.Address,
		PublicKey:   w.PublicKey,
		DisplayName: w.DisplayName,
		TrustState:  w.TrustState,
		LastSeen:    now,
	}

	if ok {
		c.FirstSeen = existing.FirstSeen
		c.PinnedAt = existing.PinnedAt
		c.TrustSource = existing.TrustSource
		c.Relay = existing.Relay
		c.Relays = existing.Relays
	} else {
		c.FirstSeen = now
	}

	if w.TrustSource != nil {
		c.TrustSource = *w.TrustSource
	}
	if w.Relay != nil {
		c.Relay = *w.Relay
	}
	if w.Relays != nil {
		c.Relays = w.Relays
	}

	s.contacts[w.Address] = c
	s.knownAddresses[w.Address] = struct{}{}
	return c, nil
}

func (s *Store) GetContact(address string) (contactbook.Contact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[address]
	return c, ok, nil
}

func (s *Store) SetTrustState(address string, state contactbook.TrustState, pinnedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[address]
	if !ok {
		return contactbook.ErrContactNotFound
	}
	c.TrustState = state
	c.LastSeen = time.Now().UTC()
	if pinnedAt != nil {
		c.PinnedAt = pinnedAt
	}
	s.contacts[address] = c
	return nil
}

func (s *Store) IsKnown(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.knownAddresses[address]
	return ok
}

func (s *Store) AddPending(p contactbook.PendingHandshake) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.Address] = p
	return nil
}

func (s *Store) GetPending(address string) (contactbook.PendingHandshake, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pending[address]
	return p, ok, nil
}

func (s *Store) DropPending(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, address)
	return nil
}

func (s *Store) ListPending() ([]contactbook.PendingHandshake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contactbook.PendingHandshake, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) ExpiredPending(now time.Time) ([]contactbook.PendingHandshake, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []contactbook.PendingHandshake
	for _, p := range s.pending {
		if now.Sub(p.ReceivedAt) > contactbook.PendingExpiry {
			expired = append(expired, p)
		}
	}
	return expired, nil
}

func (s *Store) Block(pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocked[pattern] = time.Now().UTC()
	if strings.HasPrefix(pattern, "*::") {
		s.domainBlocked[strings.TrimPrefix(pattern, "*::")] = struct{}{}
	} else {
		s.exactBlocked[pattern] = struct{}{}
	}
	return nil
}

func (s *Store) Unblock(pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blocked, pattern)
	if strings.HasPrefix(pattern, "*::") {
		delete(s.domainBlocked, strings.TrimPrefix(pattern, "*::"))
	} else {
		delete(s.exactBlocked, pattern)
	}
	return nil
}

func (s *Store) IsBlocked(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.exactBlocked[address]; ok {
		return true
	}
	if idx := strings.Index(address, "::"); idx >= 0 {
		domain := address[idx+2:]
		if _, ok := s.domainBlocked[domain]; ok {
			return true
		}
	}
	return false
}

func (s *Store) Close() error { return nil }
