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

package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenNotFound is returned by LoadToken when no bearer token is
// present on disk, in the environment override, or at the legacy path.
var ErrTokenNotFound = errors.New("keystore: no bearer token found")

// SaveToken persists an opaque relay bearer token, owner-only.
func (s *Store) SaveToken(token string) error {
	path := filepath.Join(s.dir, tokenFileName)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(token)), 0o600); err != nil {
		return fmt.Errorf("keystore: write token: %w", err)
	}
	return nil
}

// LoadToken returns the relay bearer token: the environment override if
// set, else the current token file, falling back to the legacy filename
// used before the key store was namespaced per-agent.
func (s *Store) LoadToken() (string, error) {
	if tok, ok := os.LookupEnv(TokenEnvVar); ok {
		return strings.TrimSpace(tok), nil
	}

	if tok, err := s.readTokenFile(tokenFileName); err == nil {
		return tok, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if tok, err := s.readTokenFile(legacyTokenFileName); err == nil {
		return tok, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return "", ErrTokenNotFound
}

func (s *Store) readTokenFile(name string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// ErrAddressNotFound is returned by LoadAddress when no registered
// address has been persisted yet.
var ErrAddressNotFound = errors.New("keystore: no registered address found")

// SaveAddress persists the agent's registered address alongside its
// bearer token.
func (s *Store) SaveAddress(address string) error {
	path := filepath.Join(s.dir, addressFileName)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(address)), 0o600); err != nil {
		return fmt.Errorf("keystore: write address: %w", err)
	}
	return nil
}

// LoadAddress returns the agent's previously registered address.
func (s *Store) LoadAddress() (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, addressFileName))
	if os.IsNotExist(err) {
		return "", ErrAddressNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keystore: read address: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// TokenExpiry inspects a JWT bearer token's "exp" claim without verifying
// its signature: the core never holds the relay's signing key, so this is
// informational only (e.g. deciding whether to refresh before use), not an
// authentication decision.
func TokenExpiry(token string) (time.Time, error) {
	parser := jwt.NewParser()
	unverified, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("keystore: parse token: %w", err)
	}

	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, errors.New("keystore: token has no usable claims")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("keystore: token has no exp claim")
	}
	return exp.Time, nil
}

// TokenExpired reports whether TokenExpiry(token) is in the past. A token
// that cannot be parsed is treated as expired.
func TokenExpired(token string) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return time.Now().After(exp)
}
