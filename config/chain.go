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
	"fmt"

	"github.com/uam-project/uam-core/pkg/resolver"
	"github.com/uam-project/uam-core/pkg/resolver/chain/ethereumtier"
	"github.com/uam-project/uam-core/pkg/resolver/chain/solanatier"
)

// BuildChainResolver constructs the Tier 3 on-chain backend named by
// cfg.Backend. A "none" backend returns a nil resolver.ChainResolver;
// SmartResolver then fails every Tier 3 lookup with a configuration error.
func (cfg ResolverConfig) BuildChainResolver() (resolver.ChainResolver, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil

	case "ethereum":
		return ethereumtier.New(ethereumtier.Config{
			RPCEndpoint:     cfg.RPCEndpoint,
			ContractAddress: cfg.ContractAddress,
			CacheTTL:        cfg.CacheTTL,
		})

	case "solana":
		return solanatier.New(solanatier.Config{
			RPCEndpoint: cfg.RPCEndpoint,
			ProgramID:   cfg.ProgramID,
			CacheTTL:    cfg.CacheTTL,
		})

	default:
		return nil, fmt.Errorf("config: unknown resolver backend %q", cfg.Backend)
	}
}
