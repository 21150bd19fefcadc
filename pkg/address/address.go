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

// Package address implements the UAM `agent::domain` address grammar:
// parsing, normalization and validation. This is the only place the
// grammar is enforced.
package address

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxFullLength is the maximum length of a rendered address.
	MaxFullLength = 128
	// MaxAgentLength is the maximum length of the agent component.
	MaxAgentLength = 64
)

// agentPattern matches the agent component of an address.
var agentPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]{0,62}[a-z0-9])?$`)

// domainPattern matches the domain component of an address.
var domainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9.-]{0,253}[a-z0-9])?$`)

// Address is an immutable `agent::domain` identifier.
type Address struct {
	agent  string
	domain string
	full   string
}

// InvalidAddressError reports why a raw string failed to parse as an Address.
type InvalidAddressError struct {
	Raw    string
	Reason string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q: %s", e.Raw, e.Reason)
}

// Parse trims, lowercases and validates raw against the address grammar.
// It is pure, synchronous and performs no I/O.
func Parse(raw string) (Address, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))

	if len(trimmed) == 0 {
		return Address{}, &InvalidAddressError{Raw: raw, Reason: "empty address"}
	}
	if len(trimmed) > MaxFullLength {
		return Address{}, &InvalidAddressError{Raw: raw, Reason: "exceeds maximum length"}
	}

	parts := strings.SplitN(trimmed, "::", 2)
	if len(parts) != 2 {
		return Address{}, &InvalidAddressError{Raw: raw, Reason: "missing '::' separator"}
	}

	agent, domain := parts[0], parts[1]

	if len(agent) > MaxAgentLength {
		return Address{}, &InvalidAddressError{Raw: raw, Reason: "agent component exceeds 64 characters"}
	}
	if !agentPattern.MatchString(agent) {
		return Address{}, &InvalidAddressError{Raw: raw, Reason: "agent component violates grammar"}
	}
	if !domainPattern.MatchString(domain) {
		return Address{}, &InvalidAddressError{Raw: raw, Reason: "domain component violates grammar"}
	}

	return Address{
		agent:  agent,
		domain: domain,
		full:   agent + "::" + domain,
	}, nil
}

// Agent returns the agent component.
func (a Address) Agent() string { return a.agent }

// Domain returns the domain component.
func (a Address) Domain() string { return a.domain }

// String renders the address in its canonical `agent::domain` form.
func (a Address) String() string { return a.full }

// IsZero reports whether a is the zero value (never produced by Parse).
func (a Address) IsZero() bool { return a.full == "" }

// Equal reports whether two addresses are the same identifier.
func (a Address) Equal(other Address) bool { return a.full == other.full }
