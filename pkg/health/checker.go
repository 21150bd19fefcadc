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
	"time"
)

// Checker runs every health check against one agent's configuration.
type Checker struct {
	relayURL string
}

// NewChecker builds a Checker probing the given Tier 1 relay URL.
func NewChecker(relayURL string) *Checker {
	return &Checker{relayURL: relayURL}
}

// CheckAll runs every check and folds their statuses into one result,
// taking the worst status across checks.
func (c *Checker) CheckAll(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Status:    StatusHealthy,
		Errors:    make([]string, 0),
	}

	status.RelayStatus = CheckRelay(ctx, c.relayURL)
	if status.RelayStatus.Status != StatusHealthy {
		status.Status = status.RelayStatus.Status
		if status.RelayStatus.Error != "" {
			status.Errors = append(status.Errors, "relay: "+status.RelayStatus.Error)
		}
	}

	status.SystemStatus = CheckSystem()
	if status.SystemStatus.Status != StatusHealthy {
		if status.Status == StatusHealthy || status.SystemStatus.Status == StatusUnhealthy {
			status.Status = status.SystemStatus.Status
		}
		if status.SystemStatus.Error != "" {
			status.Errors = append(status.Errors, "system: "+status.SystemStatus.Error)
		}
	}

	return status
}
