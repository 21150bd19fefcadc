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

	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List inbound handshake requests awaiting explicit approval",
	Args:  cobra.NoArgs,
	RunE:  runPending,
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}

func runPending(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := connectAgent(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	pending, err := a.Pending()
	if err != nil {
		return fmt.Errorf("pending: %w", err)
	}

	if len(pending) == 0 {
		fmt.Println("no pending handshake requests")
		return nil
	}

	for _, p := range pending {
		fmt.Printf("%s  received %s\n", p.Address, p.ReceivedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}
