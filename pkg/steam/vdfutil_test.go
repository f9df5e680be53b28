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

package steam

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVDFKeys(t *testing.T) {
	t.Parallel()

	t.Run("lowercases_nested_keys", func(t *testing.T) {
		t.Parallel()

		m := map[string]any{
			"AppState": map[string]any{
				"AppID": "123",
				"Name":  "Test Game",
			},
		}

		result := normalizeVDFKeys(m)

		nested, ok := result["appstate"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "123", nested["appid"])
		assert.Equal(t, "Test Game", nested["name"])
		_, hasOriginal := result["AppState"]
		assert.False(t, hasOriginal)
	})

	t.Run("preserves_values", func(t *testing.T) {
		t.Parallel()

		result := normalizeVDFKeys(map[string]any{"key": "MixedCaseValue"})
		assert.Equal(t, "MixedCaseValue", result["key"])
	})

	t.Run("is_idempotent", func(t *testing.T) {
		t.Parallel()

		m := map[string]any{"AppState": map[string]any{"Name": "Test"}}
		first := normalizeVDFKeys(m)
		assert.Equal(t, first, normalizeVDFKeys(first))
	})
}

func TestVDFPath(t *testing.T) {
	t.Parallel()

	m := map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": "value"},
		},
	}

	got, ok := vdfPath(m, "a", "b")
	require.True(t, ok)
	assert.Equal(t, "value", got["c"])

	_, ok = vdfPath(m, "a", "missing")
	assert.False(t, ok)

	_, ok = vdfPath(m, "a", "b", "c")
	assert.False(t, ok, "string leaf is not a section")
}

func TestFindVDFStrings(t *testing.T) {
	t.Parallel()

	m := map[string]any{
		"registry": map[string]any{
			"hkcu": map[string]any{
				"steampath": "/home/user/.local/share/Steam",
			},
		},
		"steampath": "/other",
	}

	assert.ElementsMatch(t,
		[]string{"/home/user/.local/share/Steam", "/other"},
		findVDFStrings(m, "steampath"),
	)
}

func TestReadVDF(t *testing.T) {
	t.Parallel()

	t.Run("parses_and_normalizes", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "test.vdf")
		content := "\"AppState\"\n{\n\t\"AppID\"\t\t\"620\"\n}\n"
		//nolint:gosec // G306: test file permissions are fine
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		m, err := readVDF(path)
		require.NoError(t, err)
		state, ok := vdfPath(m, "appstate")
		require.True(t, ok)
		assert.Equal(t, "620", state["appid"])
	})

	t.Run("missing_file", func(t *testing.T) {
		t.Parallel()

		_, err := readVDF(filepath.Join(t.TempDir(), "nope.vdf"))
		require.Error(t, err)
	})
}
