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

package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/uam-project/uam-core/pkg/keystore"
)

type registerRequest struct {
	AgentName string `json:"agent_name"`
	PublicKey string `json:"public_key"`
}

type registerResponse struct {
	Address string `json:"address"`
	Token   string `json:"token"`
}

// loadOrAcquireToken returns the agent's bearer token and registered
// address, loading both from the key store when already persisted, and
// auto-registering with the relay otherwise when cfg.AutoRegister is set.
func (a *Agent) loadOrAcquireToken(ctx context.Context) (token, address string, err error) {
	token, tokErr := a.keys.LoadToken()
	addr, addrErr := a.keys.LoadAddress()
	if tokErr == nil && addrErr == nil {
		return token, addr, nil
	}
	if !errors.Is(tokErr, keystore.ErrTokenNotFound) && tokErr != nil {
		return "", "", &Error{Code: ErrCodeRegistration, Message: tokErr.Error()}
	}
	if !errors.Is(addrErr, keystore.ErrAddressNotFound) && addrErr != nil {
		return "", "", &Error{Code: ErrCodeRegistration, Message: addrErr.Error()}
	}

	if !a.cfg.AutoRegister {
		return "", "", &Error{Code: ErrCodeRegistration, Message: "no bearer token on disk and auto-register is disabled"}
	}

	return a.register(ctx)
}

// register calls the relay's registration endpoint with this agent's
// public key and persists the returned token and address. A 409 response
// means the agent name is already registered under a different key.
func (a *Agent) register(ctx context.Context) (token, address string, err error) {
	body, err := json.Marshal(registerRequest{
		AgentName: a.cfg.AgentName,
		PublicKey: base64.RawURLEncoding.EncodeToString(a.kp.VerifyKey[:]),
	})
	if err != nil {
		return "", "", &Error{Code: ErrCodeRegistration, Message: err.Error()}
	}

	url := a.cfg.RelayURL + "/api/v1/register"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", &Error{Code: ErrCodeRegistration, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", "", &Error{Code: ErrCodeRegistration, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", "", &Error{Code: ErrCodeRegistration, Message: fmt.Sprintf("agent name %q is already registered under a different key", a.cfg.AgentName)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", &Error{Code: ErrCodeRegistration, Message: fmt.Sprintf("relay registration failed: status %d", resp.StatusCode)}
	}

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", &Error{Code: ErrCodeRegistration, Message: err.Error()}
	}

	if err := a.keys.SaveToken(out.Token); err != nil {
		return "", "", &Error{Code: ErrCodeRegistration, Message: err.Error()}
	}
	if err := a.keys.SaveAddress(out.Address); err != nil {
		return "", "", &Error{Code: ErrCodeRegistration, Message: err.Error()}
	}

	return out.Token, out.Address, nil
}
