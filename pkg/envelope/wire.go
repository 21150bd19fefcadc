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

package envelope

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Wire is the JSON shape exchanged with relays and peers. Field names are
// the wire's snake_case convention; internal FromAddress/ToAddress map to
// "from"/"to".
type Wire struct {
	Version     string           `json:"uam_version"`
	MessageID   string           `json:"message_id"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Timestamp   string           `json:"timestamp"`
	Type        string           `json:"type"`
	Nonce       string           `json:"nonce"`
	Payload     string           `json:"payload"`
	Signature   string           `json:"signature"`
	ThreadID    string           `json:"thread_id,omitempty"`
	ReplyTo     string           `json:"reply_to,omitempty"`
	Expires     string           `json:"expires,omitempty"`
	MediaType   string           `json:"media_type,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
	Attachments []map[string]any `json:"attachments,omitempty"`
}

// ToWire converts an internal Envelope into its wire representation.
func ToWire(env Envelope) (Wire, error) {
	w := Wire{
		Version:     env.Version,
		MessageID:   env.MessageID,
		From:        env.FromAddress,
		To:          env.ToAddress,
		Timestamp:   env.Timestamp.UTC().Format(timestampLayout),
		Type:        string(env.Type),
		Nonce:       env.Nonce,
		Payload:     env.Payload,
		Signature:   env.Signature,
		ThreadID:    env.ThreadID,
		ReplyTo:     env.ReplyTo,
		MediaType:   env.MediaType,
		Metadata:    env.Metadata,
		Attachments: env.Attachments,
	}
	if env.Expires != nil {
		w.Expires = env.Expires.UTC().Format(timestampLayout)
	}
	return w, nil
}

var requiredWireFields = []string{
	"from", "message_id", "nonce", "payload", "signature", "timestamp", "to", "type", "uam_version",
}

// FromWire reconstructs an internal Envelope from a decoded wire map.
// Missing required fields produce an ErrInvalidEnvelope whose Message lists
// the missing field names in sorted order.
func FromWire(d map[string]any) (Envelope, error) {
	var missing []string
	for _, f := range requiredWireFields {
		if _, ok := d[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return Envelope{}, Error{
			Code:    ErrInvalidEnvelope.Code,
			Message: fmt.Sprintf("envelope: missing required field(s): %s", strings.Join(missing, ", ")),
		}
	}

	ts, err := time.Parse(timestampLayout, asString(d["timestamp"]))
	if err != nil {
		return Envelope{}, ErrInvalidEnvelope
	}

	env := Envelope{
		Version:     asString(d["uam_version"]),
		MessageID:   asString(d["message_id"]),
		FromAddress: asString(d["from"]),
		ToAddress:   asString(d["to"]),
		Timestamp:   ts,
		Type:        Type(asString(d["type"])),
		Nonce:       asString(d["nonce"]),
		Payload:     asString(d["payload"]),
		Signature:   asString(d["signature"]),
		ThreadID:    asString(d["thread_id"]),
		ReplyTo:     asString(d["reply_to"]),
		MediaType:   asString(d["media_type"]),
	}

	if raw, ok := d["expires"]; ok {
		if t, err := time.Parse(timestampLayout, asString(raw)); err == nil {
			env.Expires = &t
		}
	}
	if md, ok := d["metadata"].(map[string]any); ok {
		env.Metadata = md
	}
	if atts, ok := d["attachments"].([]any); ok {
		env.Attachments = make([]map[string]any, 0, len(atts))
		for _, a := range atts {
			if m, ok := a.(map[string]any); ok {
				env.Attachments = append(env.Attachments, m)
			}
		}
	}

	return env, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
