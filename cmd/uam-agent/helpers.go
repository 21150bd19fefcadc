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

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/uam-project/uam-core/config"
	"github.com/uam-project/uam-core/pkg/agent"
	"github.com/uam-project/uam-core/pkg/handshake"
)

// loadConfig reads the config file named by --config, or the
// environment-detected default when unset.
func loadConfig() (*config.Config, error) {
	opts := config.DefaultLoaderOptions()
	if configPath != "" {
		opts.ConfigDir = filepath.Dir(configPath)
		opts.Environment = trimYAMLExt(filepath.Base(configPath))
	}
	return config.Load(opts)
}

func trimYAMLExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// connectAgent loads configuration, wires the store and resolver
// backends it names, and returns a connected Agent ready for one CLI
// operation. Callers must Close it when done.
func connectAgent(ctx context.Context) (*agent.Agent, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := cfg.Store.BuildStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}

	chain, err := cfg.Resolver.BuildChainResolver()
	if err != nil {
		return nil, fmt.Errorf("build resolver: %w", err)
	}

	a, err := agent.New(agent.Config{
		AgentName:            cfg.Agent.Name,
		RelayDomain:          cfg.Relay.Domain,
		DataDir:              cfg.Agent.DataDir,
		RelayURL:             cfg.Relay.URL,
		RelayWSURL:           cfg.Relay.WSURL,
		Transport:            agent.TransportKind(cfg.Relay.Transport),
		AutoRegister:         cfg.Agent.AutoRegister,
		Policy:               handshake.Policy(cfg.Handshake.Policy),
		Store:                store,
		Chain:                chain,
		HousekeepingInterval: cfg.Agent.HousekeepingInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}

	if err := a.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return a, nil
}
