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

package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// CheckRelay probes the Tier 1 relay's root endpoint. A 5xx response or
// a failed request is unhealthy; otherwise the result is classified by
// response latency: under 1s healthy, under 3s degraded, else unhealthy.
func CheckRelay(ctx context.Context, relayURL string) *RelayHealth {
	health := &RelayHealth{
		URL:       relayURL,
		Connected: false,
		Status:    StatusUnhealthy,
	}

	if relayURL == "" {
		health.Error = "relay URL not configured"
		return health
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, relayURL, nil)
	if err != nil {
		health.Error = fmt.Sprintf("building request: %v", err)
		return health
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		health.Error = fmt.Sprintf("connection failed: %v", err)
		return health
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	health.Latency = latency.String()

	if resp.StatusCode >= 500 {
		health.Error = fmt.Sprintf("relay returned %s", resp.Status)
		return health
	}
	health.Connected = true

	switch {
	case latency < time.Second:
		health.Status = StatusHealthy
	case latency < 3*time.Second:
		health.Status = StatusDegraded
	default:
		health.Status = StatusUnhealthy
		health.Error = fmt.Sprintf("high latency: %v", latency)
	}

	return health
}
