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

var blockCmd = &cobra.Command{
	Use:   "block <address-or-pattern>",
	Short: "Block an exact address or a `*::domain` wildcard",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlock,
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <address-or-pattern>",
	Short: "Remove a block list entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnblock,
}

func init() {
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
}

func runBlock(cmd *cobra.Command, args []string) error {
	a, err := connectAgent(context.Background())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.Block(args[0]); err != nil {
		return fmt.Errorf("block: %w", err)
	}
	fmt.Printf("blocked %s\n", args[0])
	return nil
}

func runUnblock(cmd *cobra.Command, args []string) error {
	a, err := connectAgent(context.Background())
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.Unblock(args[0]); err != nil {
		return fmt.Errorf("unblock: %w", err)
	}
	fmt.Printf("unblocked %s\n", args[0])
	return nil
}
