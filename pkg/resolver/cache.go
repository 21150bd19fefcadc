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

package resolver

import (
	"sync"
	"time"
)

// TTLCache is a mutex-guarded map of on-chain records keyed by name, each
// expiring independently. Shared by the Tier 3 chain backends so a
// registry read is not repeated within the cache window.
type TTLCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]cachedRecord
}

type cachedRecord struct {
	value     OnChainRecord
	expiresAt time.Time
}

// NewTTLCache returns an empty cache with the given per-entry lifetime.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{ttl: ttl, m: make(map[string]cachedRecord)}
}

// Get returns the cached record for name, if present and unexpired.
func (c *TTLCache) Get(name string) (OnChainRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.m[name]
	if !ok || time.Now().After(entry.expiresAt) {
		return OnChainRecord{}, false
	}
	return entry.value, true
}

// Set stores value for name, resetting its expiry to now+ttl.
func (c *TTLCache) Set(name string, value OnChainRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[name] = cachedRecord{value: value, expiresAt: time.Now().Add(c.ttl)}
}
