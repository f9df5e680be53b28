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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_WritesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, CfgFile))
	require.NoError(t, err)

	assert.True(t, cfg.ShowDisclaimer())
	assert.Equal(t, DefaultAPIPort, cfg.APIPort())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 300*time.Millisecond, cfg.CatalogRequestInterval())
	assert.Equal(t, 3, cfg.MaxAttempts())
}

func TestLoad_OverlaysFileOnDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := []byte(`config_schema = 1
show_disclaimer = false

[library]
manual_paths = ["/mnt/games/SteamLibrary"]

[catalog]
throttle_wait = "2s"
`)
	//nolint:gosec // G306: test file
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), data, 0o644))

	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	assert.False(t, cfg.ShowDisclaimer())
	assert.Equal(t, []string{"/mnt/games/SteamLibrary"}, cfg.ManualLibraryPaths())
	assert.Equal(t, 2*time.Second, cfg.CatalogThrottleWait())
	// untouched keys keep their defaults
	assert.Equal(t, time.Second, cfg.RetryBase())
	assert.True(t, cfg.CheckUpdatesOnStartup())
}

func TestLoad_SchemaMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	//nolint:gosec // G306: test file
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), []byte("config_schema = 99\n"), 0o644))

	_, err := NewConfig(dir, BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version mismatch")
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)

	cfg.SetManualLibraryPaths([]string{"/data/steam"})
	cfg.SetShowDisclaimer(false)
	cfg.SetWatchLibrary(false)
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfig(dir, BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/steam"}, reloaded.ManualLibraryPaths())
	assert.False(t, reloaded.ShowDisclaimer())
	assert.False(t, reloaded.WatchLibrary())
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		fallback time.Duration
		expected time.Duration
	}{
		{name: "empty uses fallback", value: "", fallback: time.Second, expected: time.Second},
		{name: "valid value", value: "250ms", fallback: time.Second, expected: 250 * time.Millisecond},
		{name: "invalid uses fallback", value: "soon", fallback: time.Minute, expected: time.Minute},
		{name: "negative uses fallback", value: "-1s", fallback: time.Minute, expected: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, parseDuration(tt.value, tt.fallback))
		})
	}
}

func TestErrorReporting_RequiresDSN(t *testing.T) {
	t.Parallel()

	defaults := BaseDefaults
	defaults.Telemetry = Telemetry{ErrorReporting: true}
	cfg, err := NewConfig(t.TempDir(), defaults)
	require.NoError(t, err)

	_, enabled := cfg.ErrorReporting()
	assert.False(t, enabled)
}
