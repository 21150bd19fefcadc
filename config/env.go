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
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}

// SubstituteEnvVarsInConfig recursively substitutes environment
// variables in every string field of cfg that plausibly carries one.
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Agent.DataDir = SubstituteEnvVars(cfg.Agent.DataDir)

	cfg.Relay.Domain = SubstituteEnvVars(cfg.Relay.Domain)
	cfg.Relay.URL = SubstituteEnvVars(cfg.Relay.URL)
	cfg.Relay.WSURL = SubstituteEnvVars(cfg.Relay.WSURL)

	cfg.Resolver.RPCEndpoint = SubstituteEnvVars(cfg.Resolver.RPCEndpoint)
	cfg.Resolver.ContractAddress = SubstituteEnvVars(cfg.Resolver.ContractAddress)
	cfg.Resolver.ProgramID = SubstituteEnvVars(cfg.Resolver.ProgramID)

	cfg.Store.Postgres.Host = SubstituteEnvVars(cfg.Store.Postgres.Host)
	cfg.Store.Postgres.User = SubstituteEnvVars(cfg.Store.Postgres.User)
	cfg.Store.Postgres.Password = SubstituteEnvVars(cfg.Store.Postgres.Password)
	cfg.Store.Postgres.Database = SubstituteEnvVars(cfg.Store.Postgres.Database)

	cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)
}

// LoadDotEnv loads path into the process environment, overriding any
// variable already set. A missing file is not an error: most deployments
// carry their configuration purely through the real environment.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Overload(path)
}

// GetEnvironment returns the current environment from UAM_ENV or
// ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("UAM_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether GetEnvironment is "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// IsDevelopment reports whether GetEnvironment is "development" or "local".
func IsDevelopment() bool {
	env := GetEnvironment()
	return env == "development" || env == "local"
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
