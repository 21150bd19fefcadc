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

	"github.com/uam-project/uam-core/pkg/agent"
)

var sendThreadID string

var sendCmd = &cobra.Command{
	Use:   "send <to> <message>",
	Short: "Send a text message to another agent",
	Args:  cobra.ExactArgs(2),
	Example: `  uam-agent send bob::relay.example.com "hello bob"
  uam-agent send --thread t-123 bob::relay.example.com "reply in thread"`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendThreadID, "thread", "", "thread ID to attach the message to")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := connectAgent(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	messageID, err := a.Send(ctx, args[0], args[1], agent.SendOptions{ThreadID: sendThreadID})
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	fmt.Printf("sent %s to %s\n", messageID, args[0])
	return nil
}
