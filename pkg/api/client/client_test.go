// CreamLinux Installer
// Copyright (c) 2026 The CreamLinux Installer Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of CreamLinux Installer.
//
// CreamLinux Installer is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// CreamLinux Installer is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with CreamLinux Installer.  If not, see <http://www.gnu.org/licenses/>.

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/olahol/melody"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWebSocketServer serves a melody hub that hands every message to
// handler.
func newWebSocketServer(t *testing.T, handler func(*melody.Session, []byte)) (*httptest.Server, string) {
	t.Helper()
	m := melody.New()
	m.HandleMessage(handler)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.HandleRequest(w, r)
	}))
	t.Cleanup(func() {
		_ = m.Close()
		server.Close()
	})
	return server, "ws" + strings.TrimPrefix(server.URL, "http") + APIPath
}

func respond(session *melody.Session, msg []byte, result any) {
	var req map[string]any
	if err := json.Unmarshal(msg, &req); err != nil {
		return
	}
	data, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req["id"], "result": result})
	_ = session.Write(data)
}

func TestCall_ValidRequest(t *testing.T) {
	t.Parallel()

	_, wsURL := newWebSocketServer(t, func(s *melody.Session, msg []byte) {
		var req map[string]any
		_ = json.Unmarshal(msg, &req)
		respond(s, msg, map[string]any{"method": req["method"], "params": req["params"]})
	})

	result, err := call(context.Background(), wsURL, time.Second, "get_all_dlcs_command", `{"game_path":"/games/Portal 2"}`)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal([]byte(result), &parsed))
	assert.Equal(t, "get_all_dlcs_command", parsed["method"])
	assert.Equal(t, map[string]any{"game_path": "/games/Portal 2"}, parsed["params"])
}

func TestCall_EmptyParams(t *testing.T) {
	t.Parallel()

	_, wsURL := newWebSocketServer(t, func(s *melody.Session, msg []byte) {
		var req map[string]any
		_ = json.Unmarshal(msg, &req)
		_, hasParams := req["params"]
		respond(s, msg, hasParams)
	})

	result, err := call(context.Background(), wsURL, time.Second, "version", "")
	require.NoError(t, err)
	assert.Equal(t, "false", result)
}

func TestCall_InvalidParams(t *testing.T) {
	t.Parallel()

	_, err := call(context.Background(), "ws://127.0.0.1:1/api", time.Second, "version", "{not json")
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestCall_ErrorResponse(t *testing.T) {
	t.Parallel()

	_, wsURL := newWebSocketServer(t, func(s *melody.Session, msg []byte) {
		var req map[string]any
		_ = json.Unmarshal(msg, &req)
		data, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"error":   map[string]any{"code": -32602, "message": "game_id is required"},
		})
		_ = s.Write(data)
	})

	_, err := call(context.Background(), wsURL, time.Second, "stream_game_dlcs", `{}`)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
	assert.Equal(t, "game_id is required", rpcErr.Message)
}

func TestCall_IgnoresMismatchedIDs(t *testing.T) {
	t.Parallel()

	_, wsURL := newWebSocketServer(t, func(s *melody.Session, msg []byte) {
		other, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      "00000000-0000-0000-0000-000000000001",
			"result":  "wrong",
		})
		_ = s.Write(other)
		respond(s, msg, "right")
	})

	result, err := call(context.Background(), wsURL, time.Second, "version", "")
	require.NoError(t, err)
	assert.Equal(t, `"right"`, result)
}

func TestCall_Timeout(t *testing.T) {
	t.Parallel()

	_, wsURL := newWebSocketServer(t, func(*melody.Session, []byte) {})

	_, err := call(context.Background(), wsURL, 50*time.Millisecond, "version", "")
	require.ErrorIs(t, err, ErrRequestTimeout)
}

func TestCall_ContextCancellation(t *testing.T) {
	t.Parallel()

	_, wsURL := newWebSocketServer(t, func(*melody.Session, []byte) {})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := call(ctx, wsURL, 5*time.Second, "version", "")
	require.ErrorIs(t, err, ErrRequestCancelled)
}

func TestCall_ConnectionFailure(t *testing.T) {
	t.Parallel()

	server, wsURL := newWebSocketServer(t, func(*melody.Session, []byte) {})
	server.Close()

	_, err := call(context.Background(), wsURL, time.Second, "version", "")
	require.Error(t, err)
}

func TestWaitNotification(t *testing.T) {
	t.Parallel()

	m := melody.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = m.HandleRequest(w, r)
	}))
	t.Cleanup(func() {
		_ = m.Close()
		server.Close()
	})
	m.HandleConnect(func(s *melody.Session) {
		for _, msg := range []string{
			`{"jsonrpc":"2.0","method":"scan-progress","params":{"message":"Scanning","progress":10}}`,
			`{"jsonrpc":"2.0","id":"00000000-0000-0000-0000-000000000001","method":"platform-conflict"}`,
			`{"jsonrpc":"2.0","method":"platform-conflict","params":{"game_id":"620"}}`,
		} {
			_ = s.Write([]byte(msg))
		}
	})
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + APIPath

	params, err := waitNotification(context.Background(), wsURL, time.Second, "platform-conflict")
	require.NoError(t, err)
	assert.JSONEq(t, `{"game_id":"620"}`, params)
}

func TestWaitNotification_Timeout(t *testing.T) {
	t.Parallel()

	_, wsURL := newWebSocketServer(t, func(*melody.Session, []byte) {})

	_, err := waitNotification(context.Background(), wsURL, 50*time.Millisecond, "unlockers-updated")
	require.ErrorIs(t, err, ErrRequestTimeout)
}

func TestLocalAPIClient_Call(t *testing.T) {
	t.Parallel()

	server, _ := newWebSocketServer(t, func(s *melody.Session, msg []byte) {
		respond(s, msg, map[string]string{"version": "1.0.0"})
	})
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	vals := config.BaseDefaults
	vals.API.Port = port
	cfg, err := config.NewConfig(t.TempDir(), vals)
	require.NoError(t, err)

	var c APIClient = NewLocalAPIClient(cfg)
	result, err := c.Call(context.Background(), "version", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"1.0.0"}`, result)
}

type fakeClient struct {
	result string
	err    error
	method string
}

func (f *fakeClient) Call(_ context.Context, method, _ string) (string, error) {
	f.method = method
	return f.result, f.err
}

func (*fakeClient) WaitNotification(context.Context, time.Duration, string) (string, error) {
	return "", nil
}

func TestScanTargets(t *testing.T) {
	t.Parallel()

	t.Run("decodes_targets", func(t *testing.T) {
		t.Parallel()

		c := &fakeClient{result: `[{"id":"620","title":"Portal 2","platform":"native","installed_kind":"none"}]`}
		targets, err := ScanTargets(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, "scan_steam_games", c.method)
		require.Len(t, targets, 1)
		assert.Equal(t, "620", targets[0].ID)
		assert.Equal(t, "Portal 2", targets[0].Title)
	})

	t.Run("call_error", func(t *testing.T) {
		t.Parallel()

		_, err := ScanTargets(context.Background(), &fakeClient{err: ErrRequestTimeout})
		require.ErrorIs(t, err, ErrRequestTimeout)
	})

	t.Run("bad_result", func(t *testing.T) {
		t.Parallel()

		_, err := ScanTargets(context.Background(), &fakeClient{result: `{"not":"a list"}`})
		require.Error(t, err)
	})
}
