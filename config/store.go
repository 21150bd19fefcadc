// Copyright (C) 2025 uam-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"context"
	"fmt"

	"github.com/uam-project/uam-core/pkg/contactbook"
	"github.com/uam-project/uam-core/pkg/contactbook/memory"
	"github.com/uam-project/uam-core/pkg/contactbook/postgres"
)

// BuildStore constructs the contact book backend named by cfg.Backend.
func (cfg StoreConfig) BuildStore(ctx context.Context) (contactbook.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.New(), nil

	case "postgres":
		return postgres.Open(ctx, postgres.Config{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		})

	default:
		return nil, fmt.Errorf("config: unknown store backend %q", cfg.Backend)
	}
}
