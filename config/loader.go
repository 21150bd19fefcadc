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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LoaderOptions configures Load.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config).
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// EnvFile is a .env path loaded into the process environment before
	// overrides are applied. Empty skips dotenv loading.
	EnvFile string
	// SkipEnvSubstitution disables ${VAR} substitution.
	SkipEnvSubstitution bool
	// SkipValidation disables configuration validation.
	SkipValidation bool
}

// DefaultLoaderOptions returns default loader options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		ConfigDir: "config",
		EnvFile:   ".env",
	}
}

// Load loads configuration with automatic environment detection: an
// environment-specific YAML file, falling back to default.yaml, falling
// back to config.yaml, falling back to bare defaults. Environment
// variables (UAM_*) take the highest priority.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	if options.EnvFile != "" {
		if err := LoadDotEnv(options.EnvFile); err != nil {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	envConfigPath := filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env))
	cfg, err := loadConfigFile(envConfigPath)
	if err != nil {
		defaultConfigPath := filepath.Join(options.ConfigDir, "default.yaml")
		cfg, err = loadConfigFile(defaultConfigPath)
		if err != nil {
			configPath := filepath.Join(options.ConfigDir, "config.yaml")
			cfg, err = loadConfigFile(configPath)
			if err != nil {
				cfg = &Config{}
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	setDefaults(cfg)

	if !options.SkipEnvSubstitution {
		SubstituteEnvVarsInConfig(cfg)
	}

	applyEnvironmentOverrides(cfg)

	if !options.SkipValidation {
		if errs := Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				if e.Level == "error" {
					return nil, fmt.Errorf("configuration validation failed: %s - %s", e.Field, e.Message)
				}
			}
		}
	}

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// LoadFromFile loads configuration from a single YAML (or JSON) file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by file extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if filepath.Ext(path) == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// applyEnvironmentOverrides applies the highest-priority layer: explicit
// UAM_* process environment variables.
func applyEnvironmentOverrides(cfg *Config) {
	cfg.Agent.Name = getEnvOrDefault("UAM_AGENT_NAME", cfg.Agent.Name)
	cfg.Agent.DataDir = getEnvOrDefault("UAM_DATA_DIR", cfg.Agent.DataDir)
	cfg.Agent.AutoRegister = getEnvBool("UAM_AUTO_REGISTER", cfg.Agent.AutoRegister)
	cfg.Agent.HousekeepingInterval = getEnvDuration("UAM_HOUSEKEEPING_INTERVAL", cfg.Agent.HousekeepingInterval)

	cfg.Relay.Domain = getEnvOrDefault("UAM_RELAY_DOMAIN", cfg.Relay.Domain)
	cfg.Relay.URL = getEnvOrDefault("UAM_RELAY_URL", cfg.Relay.URL)
	cfg.Relay.WSURL = getEnvOrDefault("UAM_RELAY_WS_URL", cfg.Relay.WSURL)
	cfg.Relay.Transport = getEnvOrDefault("UAM_TRANSPORT", cfg.Relay.Transport)

	cfg.Resolver.Backend = getEnvOrDefault("UAM_RESOLVER_BACKEND", cfg.Resolver.Backend)
	cfg.Resolver.RPCEndpoint = getEnvOrDefault("UAM_RESOLVER_RPC", cfg.Resolver.RPCEndpoint)
	cfg.Resolver.ContractAddress = getEnvOrDefault("UAM_RESOLVER_CONTRACT_ADDRESS", cfg.Resolver.ContractAddress)
	cfg.Resolver.ProgramID = getEnvOrDefault("UAM_RESOLVER_PROGRAM_ID", cfg.Resolver.ProgramID)
	cfg.Resolver.CacheTTL = getEnvDuration("UAM_RESOLVER_CACHE_TTL", cfg.Resolver.CacheTTL)

	cfg.Store.Backend = getEnvOrDefault("UAM_STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.Postgres.Host = getEnvOrDefault("UAM_POSTGRES_HOST", cfg.Store.Postgres.Host)
	cfg.Store.Postgres.Port = getEnvInt("UAM_POSTGRES_PORT", cfg.Store.Postgres.Port)
	cfg.Store.Postgres.User = getEnvOrDefault("UAM_POSTGRES_USER", cfg.Store.Postgres.User)
	cfg.Store.Postgres.Password = getEnvOrDefault("UAM_POSTGRES_PASSWORD", cfg.Store.Postgres.Password)
	cfg.Store.Postgres.Database = getEnvOrDefault("UAM_POSTGRES_DATABASE", cfg.Store.Postgres.Database)

	cfg.Handshake.Policy = getEnvOrDefault("UAM_HANDSHAKE_POLICY", cfg.Handshake.Policy)
	cfg.Handshake.PendingTTL = getEnvDuration("UAM_PENDING_TTL", cfg.Handshake.PendingTTL)

	cfg.Logging.Level = getEnvOrDefault("UAM_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("UAM_LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Output = getEnvOrDefault("UAM_LOG_OUTPUT", cfg.Logging.Output)

	cfg.Metrics.Enabled = getEnvBool("UAM_METRICS_ENABLED", cfg.Metrics.Enabled)
}

// setDefaults fills in the zero values Load and LoadFromFile callers
// should not have to spell out themselves.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Agent.DataDir == "" {
		cfg.Agent.DataDir = ".uam"
	}
	if cfg.Agent.HousekeepingInterval == 0 {
		cfg.Agent.HousekeepingInterval = time.Hour
	}

	if cfg.Relay.Transport == "" {
		cfg.Relay.Transport = "pull"
	}

	if cfg.Resolver.Backend == "" {
		cfg.Resolver.Backend = "none"
	}
	if cfg.Resolver.CacheTTL == 0 {
		cfg.Resolver.CacheTTL = time.Hour
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.Postgres.SSLMode == "" {
		cfg.Store.Postgres.SSLMode = "disable"
	}

	if cfg.Handshake.Policy == "" {
		cfg.Handshake.Policy = "approval-required"
	}
	if cfg.Handshake.PendingTTL == 0 {
		cfg.Handshake.PendingTTL = 7 * 24 * time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
