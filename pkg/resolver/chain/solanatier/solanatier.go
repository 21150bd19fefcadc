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

// Package solanatier is the Tier 3 on-chain resolver backend for
// registries deployed as a Solana program account. Read-only: it issues
// `getAccountInfo` against the name's program-derived address, never a
// transaction.
package solanatier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"

	"github.com/uam-project/uam-core/pkg/resolver"
)

// nameAccount is the on-chain layout of one registry entry. Solana
// program accounts are arbitrary byte blobs; this backend expects one
// serialized as JSON, matching the registry program this resolver targets.
type nameAccount struct {
	Owner     solana.PublicKey `json:"owner"`
	PublicKey [32]byte         `json:"public_key"`
	RelayURL  string           `json:"relay_url"`
	Expiry    int64            `json:"expiry"`
}

// Backend resolves UAM names against a Solana program account, caching
// successful reads for CacheTTL (one hour by default).
type Backend struct {
	client    *rpc.Client
	programID solana.PublicKey
	cache     *resolver.TTLCache
}

// Config holds the connection parameters for a Backend.
type Config struct {
	RPCEndpoint string
	ProgramID   string
	CacheTTL    time.Duration
}

// New builds a Backend from cfg.
func New(cfg Config) (*Backend, error) {
	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("solanatier: invalid program id: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Backend{
		client:    rpc.New(cfg.RPCEndpoint),
		programID: programID,
		cache:     resolver.NewTTLCache(ttl),
	}, nil
}

// Resolve implements resolver.ChainResolver.
func (b *Backend) Resolve(name string) (resolver.OnChainRecord, error) {
	if cached, ok := b.cache.Get(name); ok {
		return cached, nil
	}

	namePDA, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("name"), []byte(name)},
		b.programID,
	)
	if err != nil {
		return resolver.OnChainRecord{}, fmt.Errorf("solanatier: derive name pda: %w", err)
	}

	accountInfo, err := b.client.GetAccountInfo(context.Background(), namePDA)
	if err != nil {
		return resolver.OnChainRecord{}, &resolver.Error{Code: resolver.ErrCodeTransport, Message: err.Error()}
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return resolver.OnChainRecord{}, &resolver.Error{Code: resolver.ErrCodeNotFound, Message: fmt.Sprintf("%s not found in registry", name)}
	}

	var account nameAccount
	if err := json.Unmarshal(accountInfo.Value.Data.GetBinary(), &account); err != nil {
		return resolver.OnChainRecord{}, fmt.Errorf("solanatier: decode account: %w", err)
	}

	record := resolver.OnChainRecord{
		Owner:     account.Owner.String(),
		PublicKey: base58.Encode(account.PublicKey[:]),
		RelayURL:  account.RelayURL,
		Expiry:    account.Expiry,
	}
	b.cache.Set(name, record)
	return record, nil
}
