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

// Package keystore loads, generates, and persists an agent's long-term
// Ed25519 seed and bearer token. The seed file is written owner-only; an
// environment variable can override disk storage entirely.
package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/uam-project/uam-core/internal/logger"
	"github.com/uam-project/uam-core/pkg/uamcrypto"
)

// SeedEnvVar, when set, supplies the base64-encoded seed directly and
// bypasses disk storage entirely.
const SeedEnvVar = "UAM_AGENT_SEED"

// TokenEnvVar, when set, supplies the bearer token directly.
const TokenEnvVar = "UAM_BEARER_TOKEN"

const (
	seedFileName        = "seed.key"
	tokenFileName       = "token"
	legacyTokenFileName = "auth_token"
	addressFileName     = "address"
)

// ErrKeyNotFound is returned by Load when no seed exists on disk or in the
// environment override.
var ErrKeyNotFound = errors.New("keystore: no seed found")

// Store manages the on-disk persistence of one agent's identity under a
// per-agent directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it (owner-only) if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// LoadOrGenerate returns the agent's keypair: the environment override if
// set, else the on-disk seed, generating and persisting a fresh one on
// first run.
func (s *Store) LoadOrGenerate() (uamcrypto.KeyPair, error) {
	if raw, ok := os.LookupEnv(SeedEnvVar); ok {
		seed, err := decodeSeed(raw)
		if err != nil {
			return uamcrypto.KeyPair{}, fmt.Errorf("keystore: %s: %w", SeedEnvVar, err)
		}
		return uamcrypto.KeyPairFromSeed(seed)
	}

	kp, err := s.load()
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return uamcrypto.KeyPair{}, err
	}

	kp, err = uamcrypto.GenerateKeyPair()
	if err != nil {
		return uamcrypto.KeyPair{}, err
	}
	if err := s.persist(kp); err != nil {
		return uamcrypto.KeyPair{}, err
	}
	return kp, nil
}

func (s *Store) load() (uamcrypto.KeyPair, error) {
	path := filepath.Join(s.dir, seedFileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return uamcrypto.KeyPair{}, ErrKeyNotFound
	}
	if err != nil {
		return uamcrypto.KeyPair{}, fmt.Errorf("keystore: read seed: %w", err)
	}

	s.warnOnLoosePermissions(path)

	seed, err := decodeSeed(string(raw))
	if err != nil {
		return uamcrypto.KeyPair{}, fmt.Errorf("keystore: decode seed: %w", err)
	}
	return uamcrypto.KeyPairFromSeed(seed)
}

func (s *Store) persist(kp uamcrypto.KeyPair) error {
	path := filepath.Join(s.dir, seedFileName)
	encoded := base64.RawURLEncoding.EncodeToString(kp.Seed[:])
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("keystore: write seed: %w", err)
	}
	return nil
}

// warnOnLoosePermissions logs a warning when a seed file's mode grants
// access beyond its owner. Best-effort: Windows ACLs aren't POSIX mode
// bits, so the check only fires meaningfully on POSIX platforms.
func (s *Store) warnOnLoosePermissions(path string) {
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Mode().Perm()&0o077 != 0 {
		logger.Warn("keystore: seed file has permissions broader than owner-only",
			logger.String("path", path),
			logger.String("mode", info.Mode().Perm().String()),
		)
	}
}

func decodeSeed(raw string) ([uamcrypto.SeedSize]byte, error) {
	raw = trimSpace(raw)
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		b, err = base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return [uamcrypto.SeedSize]byte{}, err
		}
	}
	if len(b) != uamcrypto.SeedSize {
		return [uamcrypto.SeedSize]byte{}, uamcrypto.ErrInvalidSeed
	}
	var seed [uamcrypto.SeedSize]byte
	copy(seed[:], b)
	return seed, nil
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
