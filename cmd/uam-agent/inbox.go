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

var inboxLimit int

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Poll the relay and print newly received messages",
	Args:  cobra.NoArgs,
	RunE:  runInbox,
}

func init() {
	rootCmd.AddCommand(inboxCmd)
	inboxCmd.Flags().IntVar(&inboxLimit, "limit", 20, "maximum number of envelopes to pull per poll")
}

func runInbox(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := connectAgent(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	messages, err := a.Inbox(ctx, inboxLimit)
	if err != nil {
		return fmt.Errorf("inbox: %w", err)
	}

	if len(messages) == 0 {
		fmt.Println("no new messages")
		return nil
	}

	for _, m := range messages {
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format("15:04:05"), m.From, m.Text)
	}
	return nil
}
