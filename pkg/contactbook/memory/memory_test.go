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

package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uam-project/uam-core/pkg/contactbook"
)

func strPtr(s string) *string { return &s }

func TestAddContactCoalescesPreservedFields(t *testing.T) {
	s := New()

	relay := "https://relay-a.example.com"
	src := "handshake"
	_, err := s.AddContact(contactbook.ContactWrite{
		Address:     "bob::x.y",
		DisplayName: "Bob",
		TrustState:  contactbook.TrustUnverified,
		TrustSource: &src,
		Relay:       &relay,
	})
	require.NoError(t, err)

	c2, err := s.AddContact(contactbook.ContactWrite{
		Address:     "bob::x.y",
		DisplayName: "Bob Updated",
		TrustState:  contactbook.TrustTrusted,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bob Updated", c2.DisplayName)
	assert.Equal(t, contactbook.TrustTrusted, c2.TrustState)
	assert.Equal(t, "handshake", c2.TrustSource, "trust_source must survive a null write")
	assert.Equal(t, relay, c2.Relay, "relay must survive a null write")
}

func TestAddContactFirstSeenPreserved(t *testing.T) {
	s := New()

	c1, err := s.AddContact(contactbook.ContactWrite{Address: "bob::x.y", TrustState: contactbook.TrustUnknown})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	c2, err := s.AddContact(contactbook.ContactWrite{Address: "bob::x.y", TrustState: contactbook.TrustUnverified})
	require.NoError(t, err)

	assert.Equal(t, c1.FirstSeen, c2.FirstSeen)
	assert.True(t, c2.LastSeen.After(c1.LastSeen) || c2.LastSeen.Equal(c1.LastSeen))
}

func TestSetTrustStateStampsPinnedAt(t *testing.T) {
	s := New()
	_, err := s.AddContact(contactbook.ContactWrite{Address: "bob::x.y", TrustState: contactbook.TrustHandshakeSent})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, s.SetTrustState("bob::x.y", contactbook.TrustPinned, &now))

	c, ok, err := s.GetContact("bob::x.y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, contactbook.TrustPinned, c.TrustState)
	require.NotNil(t, c.PinnedAt)
	assert.WithinDuration(t, now, *c.PinnedAt, time.Second)
}

func TestSetTrustStateUnknownContact(t *testing.T) {
	s := New()
	err := s.SetTrustState("nobody::x.y", contactbook.TrustPinned, nil)
	assert.ErrorIs(t, err, contactbook.ErrContactNotFound)
}

func TestIsKnown(t *testing.T) {
	s := New()
	assert.False(t, s.IsKnown("bob::x.y"))
	_, err := s.AddContact(contactbook.ContactWrite{Address: "bob::x.y", TrustState: contactbook.TrustUnknown})
	require.NoError(t, err)
	assert.True(t, s.IsKnown("bob::x.y"))
}

func TestPendingLifecycle(t *testing.T) {
	s := New()
	old := time.Now().UTC().Add(-8 * 24 * time.Hour)
	recent := time.Now().UTC()

	require.NoError(t, s.AddPending(contactbook.PendingHandshake{Address: "old::x.y", ReceivedAt: old}))
	require.NoError(t, s.AddPending(contactbook.PendingHandshake{Address: "recent::x.y", ReceivedAt: recent}))

	p, ok, err := s.GetPending("recent::x.y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "recent::x.y", p.Address)

	expired, err := s.ExpiredPending(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old::x.y", expired[0].Address)

	require.NoError(t, s.DropPending("old::x.y"))
	_, ok, err = s.GetPending("old::x.y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBlockExactAndWildcard(t *testing.T) {
	s := New()
	require.NoError(t, s.Block("eve::spam.com"))
	require.NoError(t, s.Block("*::blocked-domain.com"))

	assert.True(t, s.IsBlocked("eve::spam.com"))
	assert.False(t, s.IsBlocked("mallory::spam.com"))
	assert.True(t, s.IsBlocked("anyone::blocked-domain.com"))
	assert.False(t, s.IsBlocked("anyone::safe-domain.com"))

	require.NoError(t, s.Unblock("eve::spam.com"))
	assert.False(t, s.IsBlocked("eve::spam.com"))
}
