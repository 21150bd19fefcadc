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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uam-project/uam-core/pkg/card"
	"github.com/uam-project/uam-core/pkg/contactbook"
	"github.com/uam-project/uam-core/pkg/contactbook/memory"
	"github.com/uam-project/uam-core/pkg/transport"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []transport.WireEnvelope
}

func (f *fakeSender) Send(ctx context.Context, e transport.WireEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) last() transport.WireEnvelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func newTestFSM(t *testing.T, policy Policy) (*FSM, *fakeSender, [uamcrypto.VerifyKeySize]byte) {
	t.Helper()

	selfKP, err := uamcrypto.GenerateKeyPair()
	require.NoError(t, err)
	peerKP, err := uamcrypto.GenerateKeyPair()
	require.NoError(t, err)

	c, err := card.Create("alice::example.com", "Alice", selfKP.Seed, card.Options{Relay: "https://relay.example.com"})
	require.NoError(t, err)

	sender := &fakeSender{}
	f := New(Config{
		Store:       memory.New(),
		Policy:      policy,
		Sender:      sender,
		SelfAddress: "alice::example.com",
		SelfSeed:    selfKP.Seed,
		SelfCard:    c,
	})
	return f, sender, peerKP.VerifyKey
}

func TestOnLocalSendEmitsRequestOnce(t *testing.T) {
	f, sender, peerKey := newTestFSM(t, PolicyApprovalRequired)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.OnLocalSend(context.Background(), "bob::x.y", peerKey))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, sender.count())
	assert.Equal(t, "handshake.request", sender.last()["type"])

	c, ok, err := f.store.GetContact("bob::x.y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, contactbook.TrustHandshakeSent, c.TrustState)
}

func TestOnInboundRequestAutoAccept(t *testing.T) {
	f, sender, peerKey := newTestFSM(t, PolicyAutoAccept)

	require.NoError(t, f.OnInboundRequest(context.Background(), "bob::x.y", peerKey, "Bob"))

	c, ok, err := f.store.GetContact("bob::x.y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, contactbook.TrustProvisional, c.TrustState)
	assert.Equal(t, "auto-accept", c.TrustSource)

	assert.Equal(t, 1, sender.count())
	assert.Equal(t, "handshake.accept", sender.last()["type"])
}

func TestOnInboundRequestAllowlistDeniesUnknown(t *testing.T) {
	f, sender, peerKey := newTestFSM(t, PolicyAllowlistOnly)

	require.NoError(t, f.OnInboundRequest(context.Background(), "bob::x.y", peerKey, "Bob"))

	assert.Equal(t, 1, sender.count())
	assert.Equal(t, "handshake.deny", sender.last()["type"])

	_, ok, err := f.store.GetContact("bob::x.y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOnInboundRequestApprovalRequiredParks(t *testing.T) {
	f, sender, peerKey := newTestFSM(t, PolicyApprovalRequired)

	require.NoError(t, f.OnInboundRequest(context.Background(), "bob::x.y", peerKey, "Bob"))
	assert.Equal(t, 0, sender.count())

	p, ok, err := f.store.GetPending("bob::x.y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bob::x.y", p.Address)
}

func TestApproveTrustsAndEmitsAccept(t *testing.T) {
	f, sender, peerKey := newTestFSM(t, PolicyApprovalRequired)
	require.NoError(t, f.OnInboundRequest(context.Background(), "bob::x.y", peerKey, "Bob"))

	require.NoError(t, f.Approve(context.Background(), "bob::x.y", peerKey))

	c, ok, err := f.store.GetContact("bob::x.y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, contactbook.TrustTrusted, c.TrustState)
	assert.Equal(t, "explicit-approval", c.TrustSource)
	assert.Equal(t, "handshake.accept", sender.last()["type"])

	_, ok, err = f.store.GetPending("bob::x.y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDenyDropsPendingAndEmitsDeny(t *testing.T) {
	f, sender, peerKey := newTestFSM(t, PolicyApprovalRequired)
	require.NoError(t, f.OnInboundRequest(context.Background(), "bob::x.y", peerKey, "Bob"))

	require.NoError(t, f.Deny(context.Background(), "bob::x.y", peerKey))
	assert.Equal(t, "handshake.deny", sender.last()["type"])

	_, ok, err := f.store.GetPending("bob::x.y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInboundRequestRejectsConflictingPinnedKey(t *testing.T) {
	f, _, peerKey := newTestFSM(t, PolicyAutoAccept)

	now := time.Now().UTC()
	_, err := f.store.AddContact(contactbook.ContactWrite{
		Address:    "bob::x.y",
		PublicKey:  [32]byte{9, 9, 9},
		TrustState: contactbook.TrustHandshakeSent,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.SetTrustState("bob::x.y", contactbook.TrustPinned, &now))

	err = f.OnInboundRequest(context.Background(), "bob::x.y", peerKey, "Bob")
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ErrCodeKeyPinning, herr.Code)
}

func TestOnInboundAcceptPinsContact(t *testing.T) {
	f, _, peerKey := newTestFSM(t, PolicyApprovalRequired)
	_, err := f.store.AddContact(contactbook.ContactWrite{
		Address:    "bob::x.y",
		PublicKey:  peerKey,
		TrustState: contactbook.TrustHandshakeSent,
	})
	require.NoError(t, err)

	require.NoError(t, f.OnInboundAccept("bob::x.y"))

	c, ok, err := f.store.GetContact("bob::x.y")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, contactbook.TrustPinned, c.TrustState)
	assert.NotNil(t, c.PinnedAt)
}

func TestSweepDropsExpiredWithoutCardSilently(t *testing.T) {
	f, sender, _ := newTestFSM(t, PolicyApprovalRequired)

	old := time.Now().UTC().Add(-8 * 24 * time.Hour)
	require.NoError(t, f.store.AddPending(contactbook.PendingHandshake{Address: "old::x.y", ReceivedAt: old}))

	swept, err := f.Sweep(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, "old::x.y", swept[0].Address)
	assert.Equal(t, 0, sender.count())

	_, ok, err := f.store.GetPending("old::x.y")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweepEmitsReceiptFailedForExpiredHandshake(t *testing.T) {
	f, sender, _ := newTestFSM(t, PolicyApprovalRequired)

	peerKP, err := uamcrypto.GenerateKeyPair()
	require.NoError(t, err)
	peerCard, err := card.Create("bob::x.y", "Bob", peerKP.Seed, card.Options{Relay: "https://bob.example.com"})
	require.NoError(t, err)
	cardJSON, err := json.Marshal(card.ToDict(peerCard))
	require.NoError(t, err)

	old := time.Now().UTC().Add(-8 * 24 * time.Hour)
	require.NoError(t, f.store.AddPending(contactbook.PendingHandshake{
		Address:         "bob::x.y",
		ContactCardJSON: string(cardJSON),
		ReceivedAt:      old,
	}))

	swept, err := f.Sweep(time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, "bob::x.y", swept[0].Address)

	require.Equal(t, 1, sender.count())
	assert.Equal(t, "receipt.failed", sender.last()["type"])

	_, ok, err := f.store.GetPending("bob::x.y")
	require.NoError(t, err)
	assert.False(t, ok)
}
