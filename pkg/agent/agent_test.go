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
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uam-project/uam-core/pkg/contactbook"
	"github.com/uam-project/uam-core/pkg/handshake"
)

// fakeRelay is a minimal in-process relay: it accepts registrations,
// answers public-key lookups, and queues sent envelopes per recipient
// address for the recipient's own Receive poll.
type fakeRelay struct {
	t         *testing.T
	mu        sync.Mutex
	nextID    int
	tokens    map[string]string // token -> address
	keys      map[string]string // address -> base64 public key
	queues    map[string][]map[string]any
	srv       *httptest.Server
	domain    string
	sendCount int
}

func newFakeRelay(t *testing.T, domain string) *fakeRelay {
	r := &fakeRelay{
		t:      t,
		tokens: make(map[string]string),
		keys:   make(map[string]string),
		queues: make(map[string][]map[string]any),
		domain: domain,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/register", r.handleRegister)
	mux.HandleFunc("/api/v1/send", r.handleSend)
	mux.HandleFunc("/api/v1/inbox/", r.handleReceive)
	mux.HandleFunc("/api/v1/agents/", r.handlePublicKey)
	r.srv = httptest.NewServer(mux)
	return r
}

func (r *fakeRelay) URL() string { return r.srv.URL }
func (r *fakeRelay) Close()      { r.srv.Close() }

func (r *fakeRelay) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body struct {
		AgentName string `json:"agent_name"`
		PublicKey string `json:"public_key"`
	}
	require.NoError(r.t, json.NewDecoder(req.Body).Decode(&body))

	r.mu.Lock()
	defer r.mu.Unlock()

	address := body.AgentName + "::" + r.domain
	r.nextID++
	token := address + "-token"
	r.tokens[token] = address
	r.keys[address] = body.PublicKey

	json.NewEncoder(w).Encode(map[string]string{
		"address": address,
		"token":   token,
	})
}

func (r *fakeRelay) handlePublicKey(w http.ResponseWriter, req *http.Request) {
	address := strings.TrimSuffix(strings.TrimPrefix(req.URL.Path, "/api/v1/agents/"), "/public-key")

	r.mu.Lock()
	key, ok := r.keys[address]
	r.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"public_key": key})
}

func (r *fakeRelay) handleSend(w http.ResponseWriter, req *http.Request) {
	var wire map[string]any
	require.NoError(r.t, json.NewDecoder(req.Body).Decode(&wire))

	to, _ := wire["to"].(string)

	r.mu.Lock()
	r.sendCount++
	r.queues[to] = append(r.queues[to], wire)
	r.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (r *fakeRelay) handleReceive(w http.ResponseWriter, req *http.Request) {
	auth := strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")

	r.mu.Lock()
	address := r.tokens[auth]
	envelopes := r.queues[address]
	r.queues[address] = nil
	r.mu.Unlock()

	if envelopes == nil {
		envelopes = []map[string]any{}
	}
	json.NewEncoder(w).Encode(map[string]any{"messages": envelopes})
}

func newTestAgent(t *testing.T, relay *fakeRelay, name string, policy handshake.Policy) *Agent {
	t.Helper()

	a, err := New(Config{
		AgentName:    name,
		RelayDomain:  relay.domain,
		RelayURL:     relay.URL(),
		DataDir:      t.TempDir(),
		AutoRegister: true,
		Policy:       policy,
		Transport:    TransportPull,
	})
	require.NoError(t, err)
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func TestConnectAutoRegistersAndPersistsAcrossReconnect(t *testing.T) {
	relay := newFakeRelay(t, "test.relay")
	defer relay.Close()

	a := newTestAgent(t, relay, "alice", handshake.PolicyAutoAccept)
	assert.Equal(t, "alice::test.relay", a.selfAddress)
	assert.NotEmpty(t, a.token)
	firstToken := a.token

	// Reconnecting reuses the persisted token and address instead of
	// registering again.
	require.NoError(t, a.Close(context.Background()))
	require.NoError(t, a.Connect(context.Background()))
	assert.Equal(t, "alice::test.relay", a.selfAddress)
	assert.Equal(t, firstToken, a.token)

	relay.mu.Lock()
	registrations := len(relay.tokens)
	relay.mu.Unlock()
	assert.Equal(t, 1, registrations)
}

func TestSendAndInboxRoundTripAutoAccept(t *testing.T) {
	relay := newFakeRelay(t, "test.relay")
	defer relay.Close()

	alice := newTestAgent(t, relay, "alice", handshake.PolicyAutoAccept)
	bob := newTestAgent(t, relay, "bob", handshake.PolicyAutoAccept)

	ctx := context.Background()

	_, err := alice.Send(ctx, bob.selfAddress, "hello bob", SendOptions{})
	require.NoError(t, err)

	// First contact: the FSM's handshake.request precedes the message in
	// bob's queue. One inbox call drains the handshake silently and
	// returns the decrypted user message.
	var received []ReceivedMessage
	require.Eventually(t, func() bool {
		msgs, err := bob.Inbox(ctx, 10)
		require.NoError(t, err)
		received = append(received, msgs...)
		return len(received) > 0
	}, time.Second, 10*time.Millisecond)

	require.Len(t, received, 1)
	assert.Equal(t, "hello bob", received[0].Text)
	assert.Equal(t, alice.selfAddress, received[0].From)

	c, ok, err := bob.store.GetContact(alice.selfAddress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, contactbook.TrustProvisional, c.TrustState)
}

func TestApprovalRequiredParksAndApprove(t *testing.T) {
	relay := newFakeRelay(t, "test.relay")
	defer relay.Close()

	alice := newTestAgent(t, relay, "alice", handshake.PolicyAutoAccept)
	bob := newTestAgent(t, relay, "bob", handshake.PolicyApprovalRequired)

	ctx := context.Background()

	_, err := alice.Send(ctx, bob.selfAddress, "knock knock", SendOptions{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := bob.Inbox(ctx, 10)
		require.NoError(t, err)
		pending, err := bob.Pending()
		require.NoError(t, err)
		return len(pending) == 1
	}, time.Second, 10*time.Millisecond)

	pending, err := bob.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, alice.selfAddress, pending[0].Address)

	aliceKeyRaw, err := base64.RawURLEncoding.DecodeString(relay.keys[alice.selfAddress])
	require.NoError(t, err)
	var aliceKey [32]byte
	copy(aliceKey[:], aliceKeyRaw)

	require.NoError(t, bob.Approve(ctx, alice.selfAddress, aliceKey))

	c, ok, err := bob.store.GetContact(alice.selfAddress)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, contactbook.TrustTrusted, c.TrustState)
}

func TestSendFailsKeyPinningOnMismatchedPinnedKey(t *testing.T) {
	relay := newFakeRelay(t, "test.relay")
	defer relay.Close()

	alice := newTestAgent(t, relay, "alice", handshake.PolicyAutoAccept)
	mallory := newTestAgent(t, relay, "mallory", handshake.PolicyAutoAccept)

	_, ok, err := alice.store.GetContact(mallory.selfAddress)
	require.NoError(t, err)
	require.False(t, ok)

	var staleKey [32]byte
	staleKey[0] = 0xFF // deliberately does not match mallory's real key
	_, err = alice.store.AddContact(contactbook.ContactWrite{
		Address:     mallory.selfAddress,
		PublicKey:   staleKey,
		DisplayName: "mallory",
		TrustState:  contactbook.TrustPinned,
	})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = alice.Send(ctx, mallory.selfAddress, "hi", SendOptions{})
	require.Error(t, err)

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ErrCodeKeyPinning, aerr.Code)

	relay.mu.Lock()
	sends := relay.sendCount
	relay.mu.Unlock()
	assert.Zero(t, sends, "no envelope should have been delivered")
}

func TestSendRejectsInvalidAddress(t *testing.T) {
	relay := newFakeRelay(t, "test.relay")
	defer relay.Close()

	alice := newTestAgent(t, relay, "alice", handshake.PolicyAutoAccept)

	_, err := alice.Send(context.Background(), "Not A Valid Address", "hi", SendOptions{})
	require.Error(t, err)

	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ErrCodeInvalidAddress, aerr.Code)
}
