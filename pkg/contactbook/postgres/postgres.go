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

// Package postgres is a PostgreSQL-backed contactbook.Store, for agents
// that need a durable, shared trust store across process restarts or
// multiple agent instances.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uam-project/uam-core/pkg/contactbook"
)

// Store is a pgx-backed contactbook.Store. Reads go straight to the pool;
// the in-memory known-address and block-pattern caches are refreshed on
// Open and kept consistent with every write under mu.
type Store struct {
	pool *pgxpool.Pool
	mu   sync.RWMutex

	knownAddresses map[string]struct{}
	exactBlocked   map[string]struct{}
	domainBlocked  map[string]struct{}
}

// Config holds the PostgreSQL connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Open connects to PostgreSQL, verifies the connection, and primes the
// in-memory known-address and block-pattern caches from the existing rows.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("contactbook/postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("contactbook/postgres: ping: %w", err)
	}

	s := &Store{
		pool:           pool,
		knownAddresses: make(map[string]struct{}),
		exactBlocked:   make(map[string]struct{}),
		domainBlocked:  make(map[string]struct{}),
	}
	if err := s.primeCaches(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) primeCaches(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `SELECT address FROM contacts`)
	if err != nil {
		return fmt.Errorf("contactbook/postgres: prime contacts cache: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return err
		}
		s.knownAddresses[addr] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.pool.Query(ctx, `SELECT pattern FROM blocked_patterns`)
	if err != nil {
		return fmt.Errorf("contactbook/postgres: prime block cache: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pattern string
		if err := rows.Scan(&pattern); err != nil {
			return err
		}
		s.cacheBlockPattern(pattern)
	}
	return rows.Err()
}

func (s *Store) cacheBlockPattern(pattern string) {
	if strings.HasPrefix(pattern, "*::") {
		s.domainBlocked[strings.TrimPrefix(pattern, "*::")] = struct{}{}
	} else {
		s.exactBlocked[pattern] = struct{}{}
	}
}

// AddContact upserts a contact row. TrustSource, Relay, and Relays use
// COALESCE(excluded.col, contacts.col) so a nil write preserves the
// previously stored provenance rather than nulling it out.
func (s *Store) AddContact(w contactbook.ContactWrite) (contactbook.Contact, error) {
	ctx := context.Background()

	var relaysJSON []byte
	if w.Relays != nil {
		var err error
		relaysJSON, err = json.Marshal(w.Relays)
		if err != nil {
			return contactbook.Contact{}, fmt.Errorf("contactbook/postgres: marshal relays: %w", err)
		}
	}

	const query = `
		INSERT INTO contacts (address, public_key, display_name, trust_state, trust_source, relay, relays_json, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (address) DO UPDATE SET
			public_key   = excluded.public_key,
			display_name = excluded.display_name,
			trust_state  = excluded.trust_state,
			trust_source = COALESCE(excluded.trust_source, contacts.trust_source),
			relay        = COALESCE(excluded.relay, contacts.relay),
			relays_json  = COALESCE(excluded.relays_json, contacts.relays_json),
			last_seen    = now()
		RETURNING address, public_key, display_name, trust_state, trust_source, relay, relays_json, pinned_at, first_seen, last_seen
	`

	row := s.pool.QueryRow(ctx, query,
		w.Address, w.PublicKey[:], w.DisplayName, string(w.TrustState),
		w.TrustSource, w.Relay, nullableJSON(relaysJSON),
	)

	c, err := scanContact(row)
	if err != nil {
		return contactbook.Contact{}, fmt.Errorf("contactbook/postgres: add contact: %w", err)
	}

	s.mu.Lock()
	s.knownAddresses[w.Address] = struct{}{}
	s.mu.Unlock()

	return c, nil
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func (s *Store) GetContact(address string) (contactbook.Contact, bool, error) {
	const query = `
		SELECT address, public_key, display_name, trust_state, trust_source, relay, relays_json, pinned_at, first_seen, last_seen
		FROM contacts WHERE address = $1
	`
	row := s.pool.QueryRow(context.Background(), query, address)
	c, err := scanContact(row)
	if err == pgx.ErrNoRows {
		return contactbook.Contact{}, false, nil
	}
	if err != nil {
		return contactbook.Contact{}, false, fmt.Errorf("contactbook/postgres: get contact: %w", err)
	}
	return c, true, nil
}

func scanContact(row pgx.Row) (contactbook.Contact, error) {
	var (
		c           contactbook.Contact
		pubKey      []byte
		trustState  string
		trustSource *string
		relay       *string
		relaysJSON  []byte
		pinnedAt    *time.Time
	)

	if err := row.Scan(&c.Address, &pubKey, &c.DisplayName, &trustState, &trustSource, &relay, &relaysJSON, &pinnedAt, &c.FirstSeen, &c.LastSeen); err != nil {
		return contactbook.Contact{}, err
	}

	copy(c.PublicKey[:], pubKey)
	c.TrustState = contactbook.TrustState(trustState)
	if trustSource != nil {
		c.TrustSource = *trustSource
	}
	if relay != nil {
		c.Relay = *relay
	}
	if len(relaysJSON) > 0 {
		_ = json.Unmarshal(relaysJSON, &c.Relays)
	}
	c.PinnedAt = pinnedAt

	return c, nil
}

func (s *Store) SetTrustState(address string, state contactbook.TrustState, pinnedAt *time.Time) error {
	const query = `UPDATE contacts SET trust_state = $1, last_seen = now(), pinned_at = COALESCE($2, pinned_at) WHERE address = $3`
	tag, err := s.pool.Exec(context.Background(), query, string(state), pinnedAt, address)
	if err != nil {
		return fmt.Errorf("contactbook/postgres: set trust state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return contactbook.ErrContactNotFound
	}
	return nil
}

func (s *Store) IsKnown(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.knownAddresses[address]
	return ok
}

func (s *Store) AddPending(p contactbook.PendingHandshake) error {
	const query = `
		INSERT INTO pending_handshakes (address, contact_card, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET contact_card = excluded.contact_card, received_at = excluded.received_at
	`
	_, err := s.pool.Exec(context.Background(), query, p.Address, p.ContactCardJSON, p.ReceivedAt)
	if err != nil {
		return fmt.Errorf("contactbook/postgres: add pending: %w", err)
	}
	return nil
}

func (s *Store) GetPending(address string) (contactbook.PendingHandshake, bool, error) {
	const query = `SELECT address, contact_card, received_at FROM pending_handshakes WHERE address = $1`
	var p contactbook.PendingHandshake
	err := s.pool.QueryRow(context.Background(), query, address).Scan(&p.Address, &p.ContactCardJSON, &p.ReceivedAt)
	if err == pgx.ErrNoRows {
		return contactbook.PendingHandshake{}, false, nil
	}
	if err != nil {
		return contactbook.PendingHandshake{}, false, fmt.Errorf("contactbook/postgres: get pending: %w", err)
	}
	return p, true, nil
}

func (s *Store) DropPending(address string) error {
	_, err := s.pool.Exec(context.Background(), `DELETE FROM pending_handshakes WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("contactbook/postgres: drop pending: %w", err)
	}
	return nil
}

func (s *Store) ListPending() ([]contactbook.PendingHandshake, error) {
	const query = `SELECT address, contact_card, received_at FROM pending_handshakes`
	rows, err := s.pool.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("contactbook/postgres: list pending: %w", err)
	}
	defer rows.Close()

	var out []contactbook.PendingHandshake
	for rows.Next() {
		var p contactbook.PendingHandshake
		if err := rows.Scan(&p.Address, &p.ContactCardJSON, &p.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ExpiredPending(now time.Time) ([]contactbook.PendingHandshake, error) {
	const query = `SELECT address, contact_card, received_at FROM pending_handshakes WHERE received_at < $1`
	rows, err := s.pool.Query(context.Background(), query, now.Add(-contactbook.PendingExpiry))
	if err != nil {
		return nil, fmt.Errorf("contactbook/postgres: expired pending: %w", err)
	}
	defer rows.Close()

	var out []contactbook.PendingHandshake
	for rows.Next() {
		var p contactbook.PendingHandshake
		if err := rows.Scan(&p.Address, &p.ContactCardJSON, &p.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Block(pattern string) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO blocked_patterns (pattern, blocked_at) VALUES ($1, now()) ON CONFLICT (pattern) DO NOTHING`, pattern)
	if err != nil {
		return fmt.Errorf("contactbook/postgres: block: %w", err)
	}

	s.mu.Lock()
	s.cacheBlockPattern(pattern)
	s.mu.Unlock()
	return nil
}

func (s *Store) Unblock(pattern string) error {
	_, err := s.pool.Exec(context.Background(), `DELETE FROM blocked_patterns WHERE pattern = $1`, pattern)
	if err != nil {
		return fmt.Errorf("contactbook/postgres: unblock: %w", err)
	}

	s.mu.Lock()
	if strings.HasPrefix(pattern, "*::") {
		delete(s.domainBlocked, strings.TrimPrefix(pattern, "*::"))
	} else {
		delete(s.exactBlocked, pattern)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) IsBlocked(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.exactBlocked[address]; ok {
		return true
	}
	if idx := strings.Index(address, "::"); idx >= 0 {
		if _, ok := s.domainBlocked[address[idx+2:]]; ok {
			return true
		}
	}
	return false
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
