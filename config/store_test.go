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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStoreMemory(t *testing.T) {
	s, err := StoreConfig{Backend: "memory"}.BuildStore(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestBuildStoreUnknown(t *testing.T) {
	_, err := StoreConfig{Backend: "mongodb"}.BuildStore(context.Background())
	assert.Error(t, err)
}
