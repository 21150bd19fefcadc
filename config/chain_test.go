// Copyright (C) 2025 uam-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChainResolverNone(t *testing.T) {
	r, err := ResolverConfig{Backend: "none"}.BuildChainResolver()
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestBuildChainResolverEthereum(t *testing.T) {
	r, err := ResolverConfig{
		Backend:         "ethereum",
		RPCEndpoint:     "https://eth-mainnet.example.com",
		ContractAddress: "0x1234567890123456789012345678901234567890",
	}.BuildChainResolver()
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestBuildChainResolverSolana(t *testing.T) {
	r, err := ResolverConfig{
		Backend:     "solana",
		RPCEndpoint: "https://api.mainnet-beta.solana.com",
		ProgramID:   "11111111111111111111111111111111",
	}.BuildChainResolver()
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestBuildChainResolverUnknown(t *testing.T) {
	_, err := ResolverConfig{Backend: "cosmos"}.BuildChainResolver()
	assert.Error(t, err)
}
