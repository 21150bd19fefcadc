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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

func TestCreateVerify(t *testing.T) {
	kp, err := uamcrypto.GenerateKeyPair()
	require.NoError(t, err)

	c, err := Create("bob::example.com", "Bob", kp.Seed, Options{Relay: "https://relay.example.com"})
	require.NoError(t, err)

	assert.Equal(t, Version, c.Version)
	assert.Equal(t, DefaultPayloadFormats, c.PayloadFormats)
	assert.Equal(t, uamcrypto.FingerprintKey(kp.VerifyKey), c.Fingerprint)
	require.NoError(t, Verify(c))
}

func TestRelaysDoNotInvalidateSignature(t *testing.T) {
	kp, err := uamcrypto.GenerateKeyPair()
	require.NoError(t, err)

	c, err := Create("bob::example.com", "Bob", kp.Seed, Options{Relay: "https://relay.example.com"})
	require.NoError(t, err)

	c.Relays = append(c.Relays, "https://relay-2.example.com", "https://relay-3.example.com")
	assert.NoError(t, Verify(c))
}

func TestVerifyRejectsTamperedDisplayName(t *testing.T) {
	kp, err := uamcrypto.GenerateKeyPair()
	require.NoError(t, err)

	c, err := Create("bob::example.com", "Bob", kp.Seed, Options{Relay: "https://relay.example.com"})
	require.NoError(t, err)

	c.DisplayName = "Eve"
	assert.ErrorIs(t, Verify(c), ErrSignatureVerification)
}

func TestDictRoundTrip(t *testing.T) {
	kp, err := uamcrypto.GenerateKeyPair()
	require.NoError(t, err)

	c, err := Create("bob::example.com", "Bob", kp.Seed, Options{Relay: "https://relay.example.com"})
	require.NoError(t, err)

	d := map[string]any{
		"version":      c.Version,
		"address":      c.Address,
		"display_name": c.DisplayName,
		"relay":        c.Relay,
		"public_key":   base64.RawURLEncoding.EncodeToString(c.PublicKey[:]),
		"signature":    c.Signature,
		"fingerprint":  c.Fingerprint,
	}
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	back, err := FromDict(decoded, true)
	require.NoError(t, err)
	assert.Equal(t, c.Address, back.Address)
	assert.Equal(t, c.Fingerprint, back.Fingerprint)
}

func TestFromDictMissingFieldsSorted(t *testing.T) {
	_, err := FromDict(map[string]any{"relay": "https://relay.example.com"}, false)
	require.Error(t, err)
	var cardErr Error
	require.ErrorAs(t, err, &cardErr)
	assert.Equal(t, ErrInvalidContactCard.Code, cardErr.Code)
	assert.Equal(t, "card: missing required field(s): address, display_name, public_key, signature, version", cardErr.Message)
}
