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
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/uam-project/uam-core/internal/logger"
	"github.com/uam-project/uam-core/internal/metrics"
	"github.com/uam-project/uam-core/pkg/card"
	"github.com/uam-project/uam-core/pkg/contactbook"
	"github.com/uam-project/uam-core/pkg/contactbook/memory"
	"github.com/uam-project/uam-core/pkg/handshake"
	"github.com/uam-project/uam-core/pkg/keystore"
	"github.com/uam-project/uam-core/pkg/resolver"
	"github.com/uam-project/uam-core/pkg/transport"
	"github.com/uam-project/uam-core/pkg/transport/pull"
	"github.com/uam-project/uam-core/pkg/transport/push"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

// Agent is one UAM identity: its key pair, contact book, resolver,
// transport, and handshake FSM, behind the public operations spec.md
// §4.10 names. The zero value is not usable; construct with New.
type Agent struct {
	cfg Config

	keys  *keystore.Store
	kp    uamcrypto.KeyPair
	token string

	selfAddress string
	selfCard    card.ContactCard

	store     contactbook.Store
	resolver  *resolver.SmartResolver
	transport transport.Transport
	fsm       *handshake.FSM

	httpClient *http.Client

	mu        sync.Mutex
	connected bool
	closed    bool

	stopHousekeeping chan struct{}
	housekeepingDone chan struct{}
}

// New constructs an Agent from cfg. Apart from creating cfg.DataDir when
// it is absent, it performs no I/O; the contact book is cfg.Store, or an
// in-memory book when nil. Call Connect to load/generate keys, register
// with the relay if needed, and open the transport.
func New(cfg Config) (*Agent, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: sendTimeout}
	}
	if cfg.Store == nil {
		cfg.Store = memory.New()
	}
	if cfg.Policy == "" {
		cfg.Policy = handshake.PolicyApprovalRequired
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportPull
	}
	if cfg.HousekeepingInterval == 0 {
		cfg.HousekeepingInterval = defaultHousekeepingInterval
	}

	keys, err := keystore.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	return &Agent{
		cfg:        cfg,
		keys:       keys,
		store:      cfg.Store,
		httpClient: cfg.HTTPClient,
	}, nil
}

// Connect is idempotent: it loads or generates the agent's key, loads or
// acquires a bearer token (auto-registering with the relay when absent
// and enabled), builds the configured transport, and sweeps expired
// pending handshakes before starting the housekeeping goroutine.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connected {
		return nil
	}

	kp, err := a.keys.LoadOrGenerate()
	if err != nil {
		return &Error{Code: ErrCodeRegistration, Message: err.Error()}
	}
	a.kp = kp

	token, address, err := a.loadOrAcquireToken(ctx)
	if err != nil {
		return err
	}
	a.token = token
	a.selfAddress = address

	selfCard, err := card.Create(a.selfAddress, a.cfg.AgentName, a.kp.Seed, card.Options{Relay: a.cfg.RelayURL})
	if err != nil {
		return &Error{Code: ErrCodeRegistration, Message: err.Error()}
	}
	a.selfCard = selfCard

	a.resolver = resolver.NewSmartResolver(resolver.Config{
		RelayURL:    a.cfg.RelayURL,
		RelayDomain: a.cfg.RelayDomain,
		Token:       a.token,
		HTTPClient:  a.httpClient,
		DNSResolver: a.cfg.DNSResolver,
		Chain:       a.cfg.Chain,
	})

	tr, err := a.buildTransport()
	if err != nil {
		return &Error{Code: ErrCodeTransport, Message: err.Error()}
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := tr.Connect(connectCtx); err != nil {
		return &Error{Code: ErrCodeTransport, Message: err.Error()}
	}
	a.transport = tr
	metrics.TransportActiveConnections.Inc()

	a.fsm = handshake.New(handshake.Config{
		Store:       a.store,
		Policy:      a.cfg.Policy,
		Sender:      transportSender{a.transport},
		SelfAddress: a.selfAddress,
		SelfSeed:    a.kp.Seed,
		SelfCard:    a.selfCard,
	})

	if _, err := a.fsm.Sweep(time.Now().UTC()); err != nil {
		logger.Warn("agent: initial pending-handshake sweep failed", logger.String("error", err.Error()))
	}

	a.connected = true
	a.closed = false
	a.stopHousekeeping = make(chan struct{})
	a.housekeepingDone = make(chan struct{})
	go a.housekeepingLoop()

	return nil
}

func (a *Agent) buildTransport() (transport.Transport, error) {
	switch a.cfg.Transport {
	case TransportPush:
		return push.New(a.cfg.RelayWSURL, a.token), nil
	case TransportPull:
		return pull.New(a.cfg.RelayURL, a.selfAddress, a.token), nil
	default:
		return nil, fmt.Errorf("agent: unknown transport kind %q", a.cfg.Transport)
	}
}

// housekeepingLoop sweeps expired pending handshakes on a ticker until
// Close signals stopHousekeeping.
func (a *Agent) housekeepingLoop() {
	defer close(a.housekeepingDone)

	ticker := time.NewTicker(a.cfg.HousekeepingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopHousekeeping:
			return
		case <-ticker.C:
			swept, err := a.fsm.Sweep(time.Now().UTC())
			if err != nil {
				logger.Warn("agent: pending-handshake sweep failed", logger.String("error", err.Error()))
				continue
			}
			for _, s := range swept {
				logger.Info("agent: pending handshake expired", logger.String("address", s.Address))
			}
		}
	}
}

// ContactCard builds and returns a signed card reflecting the agent's
// current identity.
func (a *Agent) ContactCard() (card.ContactCard, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return card.ContactCard{}, &Error{Code: ErrCodeClosed, Message: "agent not connected"}
	}
	return a.selfCard, nil
}

// Pending lists inbound handshake requests awaiting explicit approval.
func (a *Agent) Pending() ([]contactbook.PendingHandshake, error) {
	return a.store.ListPending()
}

// Approve accepts a parked handshake request from addr under
// peerVerifyKey.
func (a *Agent) Approve(ctx context.Context, addr string, peerVerifyKey [uamcrypto.VerifyKeySize]byte) error {
	return a.fsm.Approve(ctx, addr, peerVerifyKey)
}

// Deny rejects a parked handshake request from addr.
func (a *Agent) Deny(ctx context.Context, addr string, peerVerifyKey [uamcrypto.VerifyKeySize]byte) error {
	return a.fsm.Deny(ctx, addr, peerVerifyKey)
}

// Block adds pattern (an exact address or `*::domain` wildcard) to the
// block list.
func (a *Agent) Block(pattern string) error { return a.store.Block(pattern) }

// Unblock removes pattern from the block list.
func (a *Agent) Unblock(pattern string) error { return a.store.Unblock(pattern) }

// Close disconnects the transport and stops the housekeeping goroutine.
// Idempotent.
func (a *Agent) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || !a.connected {
		a.closed = true
		return nil
	}

	close(a.stopHousekeeping)
	<-a.housekeepingDone

	err := a.transport.Disconnect(ctx)
	metrics.TransportActiveConnections.Dec()
	if closeErr := a.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	a.closed = true
	a.connected = false
	return err
}

// transportSender adapts a transport.Transport to handshake.Sender, so
// the FSM can emit handshake/receipt control traffic over the agent's
// own connection without colliding with Agent's own user-facing Send
// (the multi-relay failover path send.go uses for user messages against
// a peer's own relay list).
type transportSender struct {
	transport transport.Transport
}

func (s transportSender) Send(ctx context.Context, envelope transport.WireEnvelope) error {
	return s.transport.Send(ctx, envelope)
}
