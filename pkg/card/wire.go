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

package card

import "encoding/base64"

// ToDict renders c as the wire map FromDict reconstructs it from —
// suitable for `json.Marshal` when a card travels as an envelope's
// plaintext payload (e.g. inside a handshake.request).
func ToDict(c ContactCard) map[string]any {
	d := map[string]any{
		"version":      c.Version,
		"address":      c.Address,
		"display_name": c.DisplayName,
		"relay":        c.Relay,
		"public_key":   base64.RawURLEncoding.EncodeToString(c.PublicKey[:]),
		"signature":    c.Signature,
	}
	if c.Description != "" {
		d["description"] = c.Description
	}
	if c.System != "" {
		d["system"] = c.System
	}
	if c.ConnectionEndpoint != "" {
		d["connection_endpoint"] = c.ConnectionEndpoint
	}
	if c.VerifiedDomain != "" {
		d["verified_domain"] = c.VerifiedDomain
	}
	if len(c.PayloadFormats) > 0 {
		formats := make([]any, len(c.PayloadFormats))
		for i, f := range c.PayloadFormats {
			formats[i] = f
		}
		d["payload_formats"] = formats
	}
	if c.Fingerprint != "" {
		d["fingerprint"] = c.Fingerprint
	}
	if len(c.Relays) > 0 {
		relays := make([]any, len(c.Relays))
		for i, r := range c.Relays {
			relays[i] = r
		}
		d["relays"] = relays
	}
	return d
}
