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

// Package config loads and validates the settings an Agent, a relay, or
// a CLI binary is built from: YAML on disk, overridden by UAM_* process
// environment variables. A `.env` file is loaded into the process
// environment first and replaces any variable already set there.
package config

import "time"

// Config is the root configuration document.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Agent       AgentConfig     `yaml:"agent" json:"agent"`
	Relay       RelayConfig     `yaml:"relay" json:"relay"`
	Resolver    ResolverConfig  `yaml:"resolver" json:"resolver"`
	Store       StoreConfig     `yaml:"store" json:"store"`
	Handshake   HandshakeConfig `yaml:"handshake" json:"handshake"`
	Logging     LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig   `yaml:"metrics" json:"metrics"`
}

// AgentConfig names and locates a single UAM identity.
type AgentConfig struct {
	Name                 string        `yaml:"name" json:"name"`
	DataDir              string        `yaml:"data_dir" json:"data_dir"`
	AutoRegister         bool          `yaml:"auto_register" json:"auto_register"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval" json:"housekeeping_interval"`
}

// RelayConfig describes the relay the agent registers with and the
// transport it uses to reach it.
type RelayConfig struct {
	Domain    string `yaml:"domain" json:"domain"`
	URL       string `yaml:"url" json:"url"`
	WSURL     string `yaml:"ws_url" json:"ws_url"`
	Transport string `yaml:"transport" json:"transport"` // pull, push
}

// ResolverConfig configures the Tier 3 on-chain backend. Backend is
// "ethereum", "solana", or "none" (Tier 3 lookups fail with a configuration error).
type ResolverConfig struct {
	Backend         string        `yaml:"backend" json:"backend"`
	RPCEndpoint     string        `yaml:"rpc_endpoint" json:"rpc_endpoint"`
	ContractAddress string        `yaml:"contract_address" json:"contract_address"`
	ProgramID       string        `yaml:"program_id" json:"program_id"`
	CacheTTL        time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// StoreConfig selects the contact book backend. Backend is "memory" or
// "postgres"; Postgres is ignored for the memory backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend" json:"backend"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// PostgresConfig holds connection parameters for the durable contact
// book backend.
type PostgresConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// HandshakeConfig configures the trust-negotiation FSM's default
// disposition toward inbound handshake requests.
type HandshakeConfig struct {
	Policy     string        `yaml:"policy" json:"policy"` // auto-accept, allowlist-only, approval-required
	PendingTTL time.Duration `yaml:"pending_ttl" json:"pending_ttl"`
}

// LoggingConfig controls internal/logger's output.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig controls the Prometheus HTTP exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}
