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
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uam-project/uam-core/pkg/agent"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

var approveCmd = &cobra.Command{
	Use:   "approve <address>",
	Short: "Accept a parked inbound handshake request",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprove,
}

var denyCmd = &cobra.Command{
	Use:   "deny <address>",
	Short: "Reject a parked inbound handshake request",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeny,
}

func init() {
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
}

// pendingKey looks address up among the agent's parked handshake
// requests and decodes the public key carried by its contact card, so
// approve/deny never need the caller to paste a key by hand.
func pendingKey(a *agent.Agent, address string) ([uamcrypto.VerifyKeySize]byte, error) {
	var zero [uamcrypto.VerifyKeySize]byte

	pending, err := a.Pending()
	if err != nil {
		return zero, err
	}
	for _, p := range pending {
		if p.Address != address {
			continue
		}

		var d map[string]any
		if err := json.Unmarshal([]byte(p.ContactCardJSON), &d); err != nil {
			return zero, fmt.Errorf("pending handshake for %s carries a malformed contact card: %w", address, err)
		}
		raw, ok := d["public_key"].(string)
		if !ok {
			return zero, fmt.Errorf("pending handshake for %s carries no public key", address)
		}
		decoded, err := base64.RawURLEncoding.DecodeString(raw)
		if err != nil || len(decoded) != uamcrypto.VerifyKeySize {
			return zero, fmt.Errorf("pending handshake for %s carries a malformed public key", address)
		}
		var key [uamcrypto.VerifyKeySize]byte
		copy(key[:], decoded)
		return key, nil
	}
	return zero, fmt.Errorf("no pending handshake request from %s", address)
}

func runApprove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := connectAgent(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	key, err := pendingKey(a, args[0])
	if err != nil {
		return err
	}
	if err := a.Approve(ctx, args[0], key); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	fmt.Printf("approved %s\n", args[0])
	return nil
}

func runDeny(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := connectAgent(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	key, err := pendingKey(a, args[0])
	if err != nil {
		return err
	}
	if err := a.Deny(ctx, args[0], key); err != nil {
		return fmt.Errorf("deny: %w", err)
	}
	fmt.Printf("denied %s\n", args[0])
	return nil
}
