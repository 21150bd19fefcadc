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

// Package push is the persistent-connection transport.Transport
// implementation over a gorilla/websocket connection: it reconnects on
// drop with capped exponential backoff and jitter, answers heartbeat
// pings with a pong, and buffers inbound envelopes until a listener is
// registered.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/uam-project/uam-core/internal/metrics"
	"github.com/uam-project/uam-core/pkg/transport"
	"github.com/uam-project/uam-core/pkg/version"
)

const (
	dialTimeout  = 30 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second

	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second
)

// Transport is the push (persistent WebSocket) transport.Transport.
type Transport struct {
	url   string
	token string

	connMu sync.Mutex
	conn   *websocket.Conn

	handlerMu sync.Mutex
	handler   transport.Handler
	buffer    []transport.WireEnvelope

	backoff time.Duration
	closed  bool
}

// New builds a push transport dialing url (ws:// or wss://).
func New(url, token string) *Transport {
	return &Transport{url: url, token: token, backoff: initialBackoff}
}

// Connect dials the WebSocket endpoint with a 30-second timeout and
// starts the background read loop.
func (t *Transport) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn != nil {
		return nil
	}
	t.closed = false

	conn, err := t.dial(ctx)
	if err != nil {
		metrics.TransportConnections.WithLabelValues("push", "failure").Inc()
		return err
	}
	metrics.TransportConnections.WithLabelValues("push", "success").Inc()
	t.conn = conn
	t.backoff = initialBackoff
	go t.readLoop(conn)
	return nil
}

func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	header := make(map[string][]string)
	header["User-Agent"] = []string{version.UserAgent()}
	if t.token != "" {
		header["Authorization"] = []string{"Bearer " + t.token}
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, t.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("push: dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("push: dial failed: %w", err)
	}

	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	})
	return conn, nil
}

// Disconnect closes the connection. Idempotent.
func (t *Transport) Disconnect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	t.closed = true
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Send writes envelope as a JSON frame on the current connection,
// connecting first if necessary.
func (t *Transport) Send(ctx context.Context, envelope transport.WireEnvelope) error {
	start := time.Now()
	defer func() {
		metrics.TransportSendDuration.WithLabelValues("push").Observe(time.Since(start).Seconds())
	}()

	if err := t.Connect(ctx); err != nil {
		return err
	}

	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("push: not connected")
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("push: marshal envelope: %w", err)
	}
	metrics.TransportEnvelopeSize.WithLabelValues("outbound").Observe(float64(len(payload)))

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("push: set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("push: write: %w", err)
	}
	return nil
}

// Receive drains up to limit envelopes buffered while no listener was
// registered.
func (t *Transport) Receive(ctx context.Context, limit int) ([]transport.WireEnvelope, error) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()

	if limit <= 0 || limit > len(t.buffer) {
		limit = len(t.buffer)
	}
	out := t.buffer[:limit]
	t.buffer = t.buffer[limit:]
	return out, nil
}

// Listen registers handler; every subsequently read envelope (and any
// already buffered) is dispatched to it exactly once.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()

	t.handler = handler
	for _, envelope := range t.buffer {
		handler(envelope)
	}
	t.buffer = nil
	return nil
}

// readLoop reads frames off conn until it errors, dispatching each
// decoded envelope to the registered handler or buffering it, then
// reconnects with backoff unless Disconnect was called.
func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			break
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		metrics.TransportEnvelopeSize.WithLabelValues("inbound").Observe(float64(len(raw)))

		var envelope transport.WireEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			break
		}
		t.dispatch(envelope)
	}

	t.connMu.Lock()
	closed := t.closed
	if t.conn == conn {
		t.conn = nil
	}
	t.connMu.Unlock()

	if !closed {
		t.reconnectLoop()
	}
}

func (t *Transport) dispatch(envelope transport.WireEnvelope) {
	t.handlerMu.Lock()
	defer t.handlerMu.Unlock()

	if t.handler != nil {
		t.handler(envelope)
		return
	}
	t.buffer = append(t.buffer, envelope)
}

// reconnectLoop retries the connection with capped exponential backoff
// plus random jitter in [0, backoff], resetting the backoff counter on
// a successful reconnect.
func (t *Transport) reconnectLoop() {
	for {
		t.connMu.Lock()
		closed := t.closed
		backoff := t.backoff
		t.connMu.Unlock()
		if closed {
			return
		}

		jitter := time.Duration(rand.Int63n(int64(backoff) + 1))
		time.Sleep(backoff + jitter)

		metrics.TransportReconnects.Inc()
		conn, err := t.dial(context.Background())
		if err != nil {
			metrics.TransportConnections.WithLabelValues("push", "failure").Inc()
			t.connMu.Lock()
			t.backoff = nextBackoff(t.backoff)
			t.connMu.Unlock()
			continue
		}
		metrics.TransportConnections.WithLabelValues("push", "success").Inc()

		t.connMu.Lock()
		t.conn = conn
		t.backoff = initialBackoff
		t.connMu.Unlock()

		go t.readLoop(conn)
		return
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
