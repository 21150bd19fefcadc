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

// Package resolver implements the three-tier UAM public-key resolution
// scheme: relay HTTP lookup, DNS TXT / HTTPS well-known fallback, and an
// on-chain registry read, dispatched by domain shape.
package resolver

import "fmt"

// ErrorCode classifies a resolution failure.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "not_found"
	ErrCodeTransport     ErrorCode = "transport"
	ErrCodeConfiguration ErrorCode = "configuration"
	ErrCodeMalformed     ErrorCode = "malformed"
)

// Error reports why a tier failed to resolve an address's public key.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolver: %s: %s", e.Code, e.Message)
}

// ChainBackend selects the Tier 3 on-chain registry implementation.
type ChainBackend string

const (
	ChainNone     ChainBackend = ""
	ChainEthereum ChainBackend = "ethereum"
	ChainSolana   ChainBackend = "solana"
)

// OnChainRecord is the result of a Tier 3 registry read.
type OnChainRecord struct {
	Owner     string
	PublicKey string
	RelayURL  string
	Expiry    int64
}

// ChainResolver is implemented by the ethereumtier and solanatier backends.
type ChainResolver interface {
	Resolve(name string) (OnChainRecord, error)
}
