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

// Package metrics wires every agent operation (handshakes, messages,
// transport connections, crypto) into a dedicated prometheus.Registry
// scraped over HTTP via Handler/StartServer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "uam"

// Registry is the dedicated registry every metric in this package
// registers against, rather than the global default — an embedding
// program can run more than one agent without collector name clashes.
var Registry = prometheus.NewRegistry()
