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

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/uam-project/uam-core/pkg/address"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

// Version is the current contact card schema version.
const Version = "0.1"

// Options carries the optional card fields a caller may set.
type Options struct {
	Description        string
	System             string
	ConnectionEndpoint string
	VerifiedDomain     string
	Relay              string
	Relays             []string
	PayloadFormats     []string
}

// Create builds and signs a new contact card for addr using signingSeed.
func Create(addr, displayName string, signingSeed [uamcrypto.SeedSize]byte, opts Options) (ContactCard, error) {
	parsed, err := address.Parse(addr)
	if err != nil {
		return ContactCard{}, err
	}

	kp, err := uamcrypto.KeyPairFromSeed(signingSeed)
	if err != nil {
		return ContactCard{}, err
	}

	formats := opts.PayloadFormats
	if len(formats) == 0 {
		formats = append([]string(nil), DefaultPayloadFormats...)
	}

	c := ContactCard{
		Version:            Version,
		Address:            parsed.String(),
		DisplayName:        displayName,
		Relay:              opts.Relay,
		PublicKey:          kp.VerifyKey,
		Description:        opts.Description,
		System:             opts.System,
		ConnectionEndpoint: opts.ConnectionEndpoint,
		VerifiedDomain:     opts.VerifiedDomain,
		PayloadFormats:     formats,
		Fingerprint:        uamcrypto.FingerprintKey(kp.VerifyKey),
		Relays:             opts.Relays,
	}

	canon, err := uamcrypto.Canonicalize(signableMap(c))
	if err != nil {
		return ContactCard{}, err
	}
	sig := uamcrypto.Sign(canon, kp.SigningKey)
	c.Signature = base64.RawURLEncoding.EncodeToString(sig[:])

	return c, nil
}

// Verify re-derives the signable map of c and checks its signature under
// the card's own embedded public key.
func Verify(c ContactCard) error {
	raw, err := base64.RawURLEncoding.DecodeString(c.Signature)
	if err != nil || len(raw) != uamcrypto.SignatureSize {
		return ErrSignatureVerification
	}
	var sig [uamcrypto.SignatureSize]byte
	copy(sig[:], raw)

	canon, err := uamcrypto.Canonicalize(signableMap(c))
	if err != nil {
		return ErrSignatureVerification
	}

	if err := uamcrypto.Verify(canon, sig, c.PublicKey); err != nil {
		return ErrSignatureVerification
	}
	return nil
}

// signableMap excludes payload_formats, fingerprint, and relays so
// multi-relay lists can be appended by any party without invalidating the
// card's signature.
func signableMap(c ContactCard) map[string]any {
	m := map[string]any{
		"version":      c.Version,
		"address":      c.Address,
		"display_name": c.DisplayName,
		"relay":        c.Relay,
		"public_key":   base64.RawURLEncoding.EncodeToString(c.PublicKey[:]),
	}
	if c.Description != "" {
		m["description"] = c.Description
	}
	if c.System != "" {
		m["system"] = c.System
	}
	if c.ConnectionEndpoint != "" {
		m["connection_endpoint"] = c.ConnectionEndpoint
	}
	if c.VerifiedDomain != "" {
		m["verified_domain"] = c.VerifiedDomain
	}
	return m
}

var requiredCardFields = []string{"address", "display_name", "public_key", "relay", "signature", "version"}

// FromDict reconstructs a ContactCard from a decoded wire map. When verify
// is true, the reconstructed card's signature is additionally checked.
func FromDict(d map[string]any, verify bool) (ContactCard, error) {
	var missing []string
	for _, f := range requiredCardFields {
		if _, ok := d[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return ContactCard{}, Error{
			Code:    ErrInvalidContactCard.Code,
			Message: fmt.Sprintf("card: missing required field(s): %s", strings.Join(missing, ", ")),
		}
	}

	pubRaw, err := base64.RawURLEncoding.DecodeString(asString(d["public_key"]))
	if err != nil || len(pubRaw) != uamcrypto.VerifyKeySize {
		return ContactCard{}, ErrInvalidContactCard
	}
	var pub [32]byte
	copy(pub[:], pubRaw)

	c := ContactCard{
		Version:            asString(d["version"]),
		Address:            asString(d["address"]),
		DisplayName:        asString(d["display_name"]),
		Relay:              asString(d["relay"]),
		PublicKey:          pub,
		Signature:          asString(d["signature"]),
		Description:        asString(d["description"]),
		System:             asString(d["system"]),
		ConnectionEndpoint: asString(d["connection_endpoint"]),
		VerifiedDomain:     asString(d["verified_domain"]),
		Fingerprint:        asString(d["fingerprint"]),
	}

	if formats, ok := d["payload_formats"].([]any); ok {
		c.PayloadFormats = toStringSlice(formats)
	} else {
		c.PayloadFormats = append([]string(nil), DefaultPayloadFormats...)
	}
	if relays, ok := d["relays"].([]any); ok {
		c.Relays = toStringSlice(relays)
	}

	if verify {
		if err := Verify(c); err != nil {
			return ContactCard{}, err
		}
	}

	return c, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(in []any) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
