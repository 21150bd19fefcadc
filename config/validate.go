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

import "fmt"

// ValidationError is one configuration problem. Level is "error" (Load
// fails) or "warning" (Load proceeds, the caller may still want to see it).
type ValidationError struct {
	Field   string
	Message string
	Level   string
}

// Validate checks cfg for the problems Load cannot safely paper over
// with a default.
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Agent.Name == "" {
		errs = append(errs, ValidationError{Field: "agent.name", Message: "agent name is required", Level: "error"})
	}

	if cfg.Relay.Transport != "pull" && cfg.Relay.Transport != "push" {
		errs = append(errs, ValidationError{
			Field: "relay.transport", Level: "error",
			Message: fmt.Sprintf("transport must be \"pull\" or \"push\", got %q", cfg.Relay.Transport),
		})
	}
	if cfg.Relay.Transport == "pull" && cfg.Relay.URL == "" {
		errs = append(errs, ValidationError{Field: "relay.url", Message: "relay url is required for the pull transport", Level: "error"})
	}
	if cfg.Relay.Transport == "push" && cfg.Relay.WSURL == "" {
		errs = append(errs, ValidationError{Field: "relay.ws_url", Message: "relay websocket url is required for the push transport", Level: "error"})
	}

	switch cfg.Handshake.Policy {
	case "auto-accept", "allowlist-only", "approval-required":
	default:
		errs = append(errs, ValidationError{
			Field: "handshake.policy", Level: "error",
			Message: fmt.Sprintf("unknown handshake policy %q", cfg.Handshake.Policy),
		})
	}

	switch cfg.Resolver.Backend {
	case "none":
	case "ethereum":
		if cfg.Resolver.RPCEndpoint == "" {
			errs = append(errs, ValidationError{Field: "resolver.rpc_endpoint", Message: "rpc endpoint is required for the ethereum resolver backend", Level: "error"})
		}
		if cfg.Resolver.ContractAddress == "" {
			errs = append(errs, ValidationError{Field: "resolver.contract_address", Message: "contract address is required for the ethereum resolver backend", Level: "error"})
		}
	case "solana":
		if cfg.Resolver.RPCEndpoint == "" {
			errs = append(errs, ValidationError{Field: "resolver.rpc_endpoint", Message: "rpc endpoint is required for the solana resolver backend", Level: "error"})
		}
		if cfg.Resolver.ProgramID == "" {
			errs = append(errs, ValidationError{Field: "resolver.program_id", Message: "program id is required for the solana resolver backend", Level: "error"})
		}
	default:
		errs = append(errs, ValidationError{
			Field: "resolver.backend", Level: "error",
			Message: fmt.Sprintf("unknown resolver backend %q, want none, ethereum, or solana", cfg.Resolver.Backend),
		})
	}

	switch cfg.Store.Backend {
	case "memory":
	case "postgres":
		if cfg.Store.Postgres.Host == "" {
			errs = append(errs, ValidationError{Field: "store.postgres.host", Message: "postgres host is required for the postgres store backend", Level: "error"})
		}
		if cfg.Store.Postgres.Database == "" {
			errs = append(errs, ValidationError{Field: "store.postgres.database", Message: "postgres database is required for the postgres store backend", Level: "error"})
		}
	default:
		errs = append(errs, ValidationError{
			Field: "store.backend", Level: "error",
			Message: fmt.Sprintf("unknown store backend %q, want memory or postgres", cfg.Store.Backend),
		})
	}

	return errs
}
