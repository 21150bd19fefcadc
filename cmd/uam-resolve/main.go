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

// uam-resolve looks an address's public key up through the three-tier
// resolver without needing a registered agent identity: it is a
// debugging aid for relay operators and contract deployers, not part of
// the messaging path itself.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/uam-project/uam-core/config"
	"github.com/uam-project/uam-core/pkg/address"
	"github.com/uam-project/uam-core/pkg/resolver"
)

var (
	configPath  string
	relayURL    string
	relayDomain string
	timeout     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "uam-resolve <agent::domain>",
	Short: "Resolve a UAM address's public key via the three-tier resolver",
	Args:  cobra.ExactArgs(1),
	Example: `  uam-resolve bob::relay.example.com
  uam-resolve --relay-url https://relay.example.com --relay-domain relay.example.com bob::relay.example.com
  uam-resolve --config config/production.yaml bob::chain-registry`,
	RunE: runResolve,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file providing the Tier 3 chain backend")
	rootCmd.Flags().StringVar(&relayURL, "relay-url", "", "Tier 1 relay base URL")
	rootCmd.Flags().StringVar(&relayDomain, "relay-domain", "", "domain that routes to Tier 1 rather than Tier 2/3")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "resolution timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	addr, err := address.Parse(args[0])
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}

	var chain resolver.ChainResolver
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		chain, err = cfg.Resolver.BuildChainResolver()
		if err != nil {
			return fmt.Errorf("build resolver: %w", err)
		}
		if relayURL == "" {
			relayURL = cfg.Relay.URL
		}
		if relayDomain == "" {
			relayDomain = cfg.Relay.Domain
		}
	}

	r := resolver.NewSmartResolver(resolver.Config{
		RelayURL:    relayURL,
		RelayDomain: relayDomain,
		Chain:       chain,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	key, err := r.ResolvePublicKey(ctx, addr.Agent(), addr.Domain())
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	fmt.Println(key)
	return nil
}
