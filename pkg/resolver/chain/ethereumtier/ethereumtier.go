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

// Package ethereumtier is the Tier 3 on-chain resolver backend for
// registries deployed on an EVM chain. It is read-only: `resolve` view
// calls only, no transaction signing.
package ethereumtier

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/uam-project/uam-core/pkg/resolver"
)

// registryABI exposes the single read view the Tier 3 contract needs:
// resolve(name) -> (owner, publicKey, relayUrl, expiry).
const registryABI = `[{"constant":true,"inputs":[{"name":"name","type":"string"}],"name":"resolve","outputs":[{"name":"owner","type":"address"},{"name":"publicKey","type":"bytes"},{"name":"relayUrl","type":"string"},{"name":"expiry","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

// Backend resolves UAM names against an Ethereum (or EVM-compatible)
// registry contract, caching successful reads for CacheTTL (one hour by
// default).
type Backend struct {
	client          *ethclient.Client
	contract        *bind.BoundContract
	contractABI     abi.ABI
	contractAddress common.Address
	cache           *resolver.TTLCache
}

// Config holds the connection parameters for a Backend.
type Config struct {
	RPCEndpoint     string
	ContractAddress string
	CacheTTL        time.Duration
}

// New dials the RPC endpoint and binds the registry contract.
func New(cfg Config) (*Backend, error) {
	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("ethereumtier: connect: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("ethereumtier: parse abi: %w", err)
	}

	contractAddress := common.HexToAddress(cfg.ContractAddress)
	contract := bind.NewBoundContract(contractAddress, parsedABI, client, client, client)

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Backend{
		client:          client,
		contract:        contract,
		contractABI:     parsedABI,
		contractAddress: contractAddress,
		cache:           resolver.NewTTLCache(ttl),
	}, nil
}

// Resolve implements resolver.ChainResolver.
func (b *Backend) Resolve(name string) (resolver.OnChainRecord, error) {
	if cached, ok := b.cache.Get(name); ok {
		return cached, nil
	}

	ctx := context.Background()

	callData, err := b.contractABI.Pack("resolve", name)
	if err != nil {
		return resolver.OnChainRecord{}, fmt.Errorf("ethereumtier: pack call: %w", err)
	}

	output, err := b.client.CallContract(ctx, ethereum.CallMsg{
		To:   &b.contractAddress,
		Data: callData,
	}, nil)
	if err != nil {
		return resolver.OnChainRecord{}, &resolver.Error{Code: resolver.ErrCodeTransport, Message: err.Error()}
	}

	var result struct {
		Owner     common.Address
		PublicKey []byte
		RelayUrl  string
		Expiry    *big.Int
	}
	if err := b.contractABI.UnpackIntoInterface(&result, "resolve", output); err != nil {
		return resolver.OnChainRecord{}, fmt.Errorf("ethereumtier: unpack result: %w", err)
	}

	if len(result.PublicKey) == 0 {
		return resolver.OnChainRecord{}, &resolver.Error{Code: resolver.ErrCodeNotFound, Message: fmt.Sprintf("%s not found in registry", name)}
	}

	record := resolver.OnChainRecord{
		Owner:     result.Owner.Hex(),
		PublicKey: hex.EncodeToString(result.PublicKey),
		RelayURL:  result.RelayUrl,
		Expiry:    result.Expiry.Int64(),
	}
	b.cache.Set(name, record)
	return record, nil
}
