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

package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/uam-project/uam-core/pkg/version"
)

// relayKeyResponse is the Tier 1 JSON response shape.
type relayKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// wellKnownDocument is the Tier 2 HTTPS fallback document shape.
type wellKnownDocument struct {
	Agents map[string]struct {
		Key string `json:"key"`
	} `json:"agents"`
}

// Tier1Relay resolves a public key by asking the relay directly:
// GET {relayURL}/api/v1/agents/{address}/public-key.
func Tier1Relay(ctx context.Context, httpClient *http.Client, relayURL, address, token string) (string, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	url := strings.TrimSuffix(relayURL, "/") + "/api/v1/agents/" + address + "/public-key"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{Code: ErrCodeTransport, Message: err.Error()}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", &Error{Code: ErrCodeTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found at relay", address)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Code: ErrCodeTransport, Message: fmt.Sprintf("relay returned %d", resp.StatusCode)}
	}

	var body relayKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &Error{Code: ErrCodeMalformed, Message: "invalid relay response: " + err.Error()}
	}
	if body.PublicKey == "" {
		return "", &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found at relay", address)}
	}
	return body.PublicKey, nil
}

// dnsRecordPrefix identifies a UAM TXT record among unrelated records at
// the same name.
const dnsRecordPrefix = "v=uam1"

// Tier2DNSAndWellKnown resolves a public key via `_uam.{domain}` TXT
// records, falling back to `https://{domain}/.well-known/uam.json` when
// DNS carries no usable record.
func Tier2DNSAndWellKnown(ctx context.Context, httpClient *http.Client, resolverNet *net.Resolver, agentName, domain string) (string, error) {
	if resolverNet == nil {
		resolverNet = net.DefaultResolver
	}

	if key, ok := lookupTXTKey(ctx, resolverNet, domain); ok {
		return key, nil
	}

	key, err := lookupWellKnownKey(ctx, httpClient, agentName, domain)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("no uam record for %s", domain)}
	}
	return key, nil
}

func lookupTXTKey(ctx context.Context, resolverNet *net.Resolver, domain string) (string, bool) {
	records, err := resolverNet.LookupTXT(ctx, "_uam."+domain)
	if err != nil {
		return "", false
	}

	for _, record := range records {
		if !strings.HasPrefix(record, dnsRecordPrefix) {
			continue
		}
		tags := parseTagValuePairs(record)
		key, ok := tags["key"]
		if !ok {
			continue
		}
		return strings.TrimPrefix(key, "ed25519:"), true
	}
	return "", false
}

// parseTagValuePairs splits a semicolon-separated `tag=value` record into
// a map, lowercasing tags and leaving values untouched.
func parseTagValuePairs(record string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(record, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(kv[0]))] = kv[1]
	}
	return out
}

func lookupWellKnownKey(ctx context.Context, httpClient *http.Client, agentName, domain string) (string, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	url := "https://" + domain + "/.well-known/uam.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{Code: ErrCodeTransport, Message: err.Error()}
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", &Error{Code: ErrCodeTransport, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Code: ErrCodeTransport, Message: fmt.Sprintf("well-known endpoint returned %d", resp.StatusCode)}
	}

	var doc wellKnownDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", &Error{Code: ErrCodeMalformed, Message: "invalid well-known document: " + err.Error()}
	}
	return strings.TrimPrefix(doc.Agents[agentName].Key, "ed25519:"), nil
}

// Config configures a SmartResolver's tier dispatch.
type Config struct {
	RelayURL    string
	RelayDomain string
	Token       string
	HTTPClient  *http.Client
	DNSResolver *net.Resolver
	Chain       ChainResolver
}

// SmartResolver dispatches address resolution to Tier 1, 2, or 3 based on
// the shape of the address's domain component.
type SmartResolver struct {
	cfg Config
}

// NewSmartResolver builds a SmartResolver from cfg.
func NewSmartResolver(cfg Config) *SmartResolver {
	return &SmartResolver{cfg: cfg}
}

// ResolvePublicKey implements spec's three-tier dispatch: a domain equal
// to the configured relay domain goes to Tier 1, a domain containing a
// dot goes to Tier 2, and a dotless domain goes to Tier 3.
func (r *SmartResolver) ResolvePublicKey(ctx context.Context, agentName, domain string) (string, error) {
	switch {
	case domain == r.cfg.RelayDomain:
		return Tier1Relay(ctx, r.cfg.HTTPClient, r.cfg.RelayURL, agentName+"::"+domain, r.cfg.Token)
	case strings.Contains(domain, "."):
		return Tier2DNSAndWellKnown(ctx, r.cfg.HTTPClient, r.cfg.DNSResolver, agentName, domain)
	default:
		if r.cfg.Chain == nil {
			return "", &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf("no tier 3 chain backend configured for dotless domain %q", domain)}
		}
		record, err := r.cfg.Chain.Resolve(domain)
		if err != nil {
			return "", err
		}
		if record.PublicKey == "" {
			return "", &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found on chain", domain)}
		}
		return record.PublicKey, nil
	}
}
