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

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadFile(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.zip":
			assert.Contains(t, r.Header.Get("User-Agent"), "CreamLinux-Installer")
			_, _ = w.Write([]byte("archive-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient()

	t.Run("temp_file_renamed_on_success", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		out := filepath.Join(dir, "ok.zip")
		tmp := out + ".part"

		err := client.DownloadFile(context.Background(), DownloadFileArgs{
			URL:        srv.URL + "/ok.zip",
			OutputPath: out,
			TempPath:   tmp,
		})
		require.NoError(t, err)

		data, err := os.ReadFile(out) //nolint:gosec // test path
		require.NoError(t, err)
		assert.Equal(t, "archive-bytes", string(data))
		assert.NoFileExists(t, tmp)
	})

	t.Run("status_error_leaves_no_file", func(t *testing.T) {
		t.Parallel()

		out := filepath.Join(t.TempDir(), "missing.zip")
		err := client.DownloadFile(context.Background(), DownloadFileArgs{
			URL:        srv.URL + "/missing.zip",
			OutputPath: out,
			TempPath:   out + ".part",
		})
		require.Error(t, err)
		assert.True(t, IsStatus(err, http.StatusNotFound))
		assert.NoFileExists(t, out)
	})
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("throttle") != "" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"name":"Portal 2"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient()

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "Portal 2", out.Name)

	err := client.GetJSON(context.Background(), srv.URL+"?throttle=1", &out)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}
