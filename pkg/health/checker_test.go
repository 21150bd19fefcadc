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

package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRelayUnconfigured(t *testing.T) {
	h := CheckRelay(context.Background(), "")
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.False(t, h.Connected)
	assert.NotEmpty(t, h.Error)
}

func TestCheckRelayHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := CheckRelay(context.Background(), srv.URL)
	assert.Equal(t, StatusHealthy, h.Status)
	assert.True(t, h.Connected)
	assert.NotEmpty(t, h.Latency)
}

func TestCheckRelayServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := CheckRelay(context.Background(), srv.URL)
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.False(t, h.Connected)
}

func TestCheckRelayUnreachable(t *testing.T) {
	h := CheckRelay(context.Background(), "http://127.0.0.1:1")
	assert.Equal(t, StatusUnhealthy, h.Status)
	assert.False(t, h.Connected)
	assert.NotEmpty(t, h.Error)
}

func TestCheckSystemReportsResourceUsage(t *testing.T) {
	h := CheckSystem()
	require.NotNil(t, h)
	assert.GreaterOrEqual(t, h.GoRoutines, 1)
	assert.Contains(t, []Status{StatusHealthy, StatusDegraded, StatusUnhealthy}, h.Status)
}

func TestCheckerCheckAllFoldsWorstStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewChecker(srv.URL)
	status := checker.CheckAll(context.Background())

	require.NotNil(t, status.RelayStatus)
	require.NotNil(t, status.SystemStatus)
	assert.Equal(t, StatusHealthy, status.RelayStatus.Status)
	// With a healthy relay, the folded status is the system check's status.
	assert.Equal(t, status.SystemStatus.Status, status.Status)
}

func TestCheckerCheckAllUnhealthyRelayPropagates(t *testing.T) {
	checker := NewChecker("")
	status := checker.CheckAll(context.Background())

	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.NotEmpty(t, status.Errors)
}
