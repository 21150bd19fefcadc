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

package pull

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uam-project/uam-core/pkg/transport"
)

func TestSendPostsEnvelopeWithBearerAuth(t *testing.T) {
	var gotAuth string
	var gotBody transport.WireEnvelope

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/send", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := New(srv.URL, "alice::net", "tok")
	err := tr.Send(context.Background(), transport.WireEnvelope{"message_id": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "abc", gotBody["message_id"])
}

func TestSendSurfacesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tr := New(srv.URL, "alice::net", "")
	err := tr.Send(context.Background(), transport.WireEnvelope{})
	assert.Error(t, err)
}

func TestReceiveParsesEnvelopeArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/inbox/alice::net?limit=5", r.URL.RequestURI())
		w.Write([]byte(`{"messages":[{"message_id":"a"},{"message_id":"b"}]}`))
	}))
	defer srv.Close()

	tr := New(srv.URL, "alice::net", "")
	envelopes, err := tr.Receive(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, envelopes, 2)
	assert.Equal(t, "a", envelopes[0]["message_id"])
}

func TestReceiveEmptyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	tr := New(srv.URL, "alice::net", "")
	envelopes, err := tr.Receive(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, envelopes)
}

func TestListenIsUnsupported(t *testing.T) {
	tr := New("http://example.com", "alice::net", "")
	err := tr.Listen(context.Background(), func(transport.WireEnvelope) {})
	assert.ErrorIs(t, err, transport.ErrListenNotSupported)
}
