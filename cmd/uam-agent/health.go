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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uam-project/uam-core/pkg/health"
)

var (
	healthServe bool
	healthPort  int
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check relay reachability and local resource pressure",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthServe, "serve", false, "run a long-lived probe server instead of a one-shot check")
	healthCmd.Flags().IntVar(&healthPort, "port", 8090, "port for --serve")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if healthServe {
		server, err := health.StartHealthServer(healthPort, cfg.Relay.URL)
		if err != nil {
			return fmt.Errorf("start health server: %w", err)
		}
		fmt.Printf("health server listening on :%d (/health, /health/live, /health/ready, /metrics)\n", healthPort)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		return server.Stop(context.Background())
	}

	checker := health.NewChecker(cfg.Relay.URL)
	status := checker.CheckAll(context.Background())

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}
	fmt.Println(string(out))

	if status.Status == health.StatusUnhealthy {
		os.Exit(1)
	}
	return nil
}
