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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "uam-agent",
	Short: "UAM Agent CLI - connect, send, and receive Universal Agent Messaging traffic",
	Long: `uam-agent runs a single UAM identity against a relay: it registers
(or reconnects) the agent, sends and receives envelopes, and manages
the trust state of its contacts.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default: config/<env>.yaml)")

	// Commands are registered in their respective files:
	// - send.go: sendCmd
	// - inbox.go: inboxCmd
	// - pending.go: pendingCmd
	// - approve.go: approveCmd, denyCmd
	// - block.go: blockCmd, unblockCmd
	// - card.go: cardCmd
}
