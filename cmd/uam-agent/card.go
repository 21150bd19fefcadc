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

	"github.com/spf13/cobra"

	"github.com/uam-project/uam-core/pkg/card"
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Print this agent's signed contact card as JSON",
	Args:  cobra.NoArgs,
	RunE:  runCard,
}

func init() {
	rootCmd.AddCommand(cardCmd)
}

func runCard(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := connectAgent(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	c, err := a.ContactCard()
	if err != nil {
		return fmt.Errorf("contact card: %w", err)
	}

	out, err := json.MarshalIndent(card.ToDict(c), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal contact card: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
