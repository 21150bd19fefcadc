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

// Package pull is the request/response transport.pull.Transport
// implementation: one HTTP POST per Send, a GET poll per Receive.
package pull

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/uam-project/uam-core/internal/metrics"
	"github.com/uam-project/uam-core/pkg/transport"
	"github.com/uam-project/uam-core/pkg/version"
)

const sendTimeout = 10 * time.Second

// Transport is the pull (request/response) transport.Transport.
type Transport struct {
	baseURL    string
	address    string
	token      string
	httpClient *http.Client
}

// New builds a pull transport against baseURL for the agent identified
// by address, authenticating with token.
func New(baseURL, address, token string) *Transport {
	return &Transport{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		address:    address,
		token:      token,
		httpClient: &http.Client{Timeout: sendTimeout},
	}
}

// Connect is a no-op; the pull transport is stateless between calls.
func (t *Transport) Connect(ctx context.Context) error { return nil }

// Disconnect is a no-op.
func (t *Transport) Disconnect(ctx context.Context) error { return nil }

// Send POSTs envelope to {baseURL}/api/v1/send.
func (t *Transport) Send(ctx context.Context, envelope transport.WireEnvelope) (err error) {
	start := time.Now()
	defer func() {
		metrics.TransportSendDuration.WithLabelValues("pull").Observe(time.Since(start).Seconds())
		status := "success"
		if err != nil {
			status = "failure"
		}
		metrics.TransportConnections.WithLabelValues("pull", status).Inc()
	}()

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("pull: marshal envelope: %w", err)
	}
	metrics.TransportEnvelopeSize.WithLabelValues("outbound").Observe(float64(len(body)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/v1/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pull: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pull: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pull: send rejected (%d): %s", resp.StatusCode, string(payload))
	}
	return nil
}

// Receive GETs {baseURL}/api/v1/inbox/{address}?limit=N and parses the
// {"messages": [...]} envelope list.
func (t *Transport) Receive(ctx context.Context, limit int) ([]transport.WireEnvelope, error) {
	url := t.baseURL + "/api/v1/inbox/" + t.address + "?limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("pull: build request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull: receive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pull: receive rejected (%d): %s", resp.StatusCode, string(payload))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pull: read response: %w", err)
	}
	metrics.TransportEnvelopeSize.WithLabelValues("inbound").Observe(float64(len(raw)))

	var body struct {
		Messages []transport.WireEnvelope `json:"messages"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("pull: decode response: %w", err)
	}
	return body.Messages, nil
}

// Listen always fails: the pull transport has no push channel.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	return transport.ErrListenNotSupported
}
