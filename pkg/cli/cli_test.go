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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/Novattz/creamlinux-installer/pkg/api/client"
	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/Novattz/creamlinux-installer/pkg/steam"
	"github.com/Novattz/creamlinux-installer/pkg/testing/fixtures"
	"github.com/olahol/melody"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanLibrary(t *testing.T) {
	t.Parallel()

	t.Run("prints_targets", func(t *testing.T) {
		t.Parallel()

		lib := fixtures.NewSteamLibrary(t)
		lib.AddNativeGame("620", "Portal 2")
		lib.AddWindowsGame("570", "Dota 2")

		var out bytes.Buffer
		require.NoError(t, ScanLibrary(context.Background(), []string{lib.Root}, &out))

		var targets []models.Target
		require.NoError(t, json.Unmarshal(out.Bytes(), &targets))
		ids := make([]string, 0, len(targets))
		for _, target := range targets {
			ids = append(ids, target.ID)
			assert.Equal(t, models.InstalledNone, target.InstalledKind)
		}
		assert.ElementsMatch(t, []string{"620", "570"}, ids)
	})

	t.Run("no_library", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		err := ScanLibrary(context.Background(), []string{t.TempDir()}, &out)
		require.ErrorIs(t, err, steam.ErrNoLibraryFound)
		assert.Empty(t, out.String())
	})
}

// newAPIConfig serves a hub on 127.0.0.1 and returns a config pointing at it.
func newAPIConfig(t *testing.T, handler func(*melody.Session, []byte)) *config.Instance {
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

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	defaults := config.BaseDefaults
	defaults.API.Port = port
	cfg, err := config.NewConfig(t.TempDir(), defaults)
	require.NoError(t, err)
	return cfg
}

func TestCallAPI(t *testing.T) {
	t.Parallel()

	t.Run("prints_result", func(t *testing.T) {
		t.Parallel()

		cfg := newAPIConfig(t, func(s *melody.Session, msg []byte) {
			var req models.RequestObject
			if err := json.Unmarshal(msg, &req); err != nil {
				return
			}
			data, _ := json.Marshal(map[string]any{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  map[string]any{"method": req.Method, "params": req.Params},
			})
			_ = s.Write(data)
		})

		var out bytes.Buffer
		api := client.NewLocalAPIClient(cfg)
		err := CallAPI(context.Background(), api, `get_all_dlcs_command:{"game_path":"/games/a"}`, &out)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.Equal(t, "get_all_dlcs_command", got["method"])
		assert.Equal(t, map[string]any{"game_path": "/games/a"}, got["params"])
	})

	t.Run("missing_value", func(t *testing.T) {
		t.Parallel()

		err := CallAPI(context.Background(), client.NewLocalAPIClient(&config.Instance{}), "", &bytes.Buffer{})
		require.ErrorIs(t, err, ErrMissingValue)
	})

	t.Run("error_response", func(t *testing.T) {
		t.Parallel()

		cfg := newAPIConfig(t, func(s *melody.Session, msg []byte) {
			var req models.RequestObject
			if err := json.Unmarshal(msg, &req); err != nil {
				return
			}
			data, _ := json.Marshal(map[string]any{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"error":   map[string]any{"code": -32601, "message": "method not found"},
			})
			_ = s.Write(data)
		})

		var out bytes.Buffer
		err := CallAPI(context.Background(), client.NewLocalAPIClient(cfg), "nope", &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "method not found")
		assert.Empty(t, out.String())
	})
}
