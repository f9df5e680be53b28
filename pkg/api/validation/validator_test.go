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

package validation

import (
	"encoding/json"
	"testing"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAbsPath(t *testing.T) {
	t.Parallel()

	type testStruct struct {
		Path string `validate:"abspath"`
	}

	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{name: "absolute", value: "/home/deck/.steam/steam/steamapps/common/Portal 2"},
		{name: "empty_is_skipped", value: ""},
		{name: "relative", value: "steamapps/common/Portal 2", wantError: true},
		{name: "dot_relative", value: "./game", wantError: true},
		{name: "unclean", value: "/games/../etc", wantError: true},
		{name: "trailing_slash", value: "/games/Portal 2/", wantError: true},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := v.Validate(&testStruct{Path: tt.value})
			if tt.wantError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "clean absolute path")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateGameAction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  string
		wantErr string
	}{
		{name: "valid", params: `{"game_action":{"game_id":"620","action":"install_cream"}}`},
		{name: "bare_uninstall", params: `{"game_action":{"game_id":"620","action":"uninstall"}}`},
		{name: "missing_action", params: `{"game_action":{"game_id":"620"}}`, wantErr: "action is required"},
		{name: "unknown_action", params: `{"game_action":{"game_id":"620","action":"reinstall"}}`, wantErr: "must be one of"},
		{name: "non_numeric_id", params: `{"game_action":{"game_id":"portal","action":"install"}}`, wantErr: "numeric"},
		{name: "missing_struct", params: `{}`, wantErr: "is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p models.ProcessGameActionParams
			err := ValidateAndUnmarshal(json.RawMessage(tt.params), &p)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidateCatalogItems(t *testing.T) {
	t.Parallel()

	var p models.UpdateDLCConfigurationParams
	err := ValidateAndUnmarshal(json.RawMessage(
		`{"game_path":"/games/Portal 2","dlcs":[{"appid":"1001","name":"A","enabled":true},{"appid":"","name":"B"}]}`,
	), &p)
	require.Error(t, err)

	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "required", ve.Fields[0].Tag)
}

func TestValidateConflictType(t *testing.T) {
	t.Parallel()

	var p models.ResolvePlatformConflictParams
	require.NoError(t, ValidateAndUnmarshal(
		json.RawMessage(`{"game_id":"292030","conflict_type":"cream-to-proton"}`), &p,
	))
	assert.Equal(t, models.ConflictCreamButCompat, p.ConflictType)

	err := ValidateAndUnmarshal(json.RawMessage(`{"game_id":"292030","conflict_type":"keep"}`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cream-to-proton smoke-to-native")
}

func TestValidateAndUnmarshal_BadInput(t *testing.T) {
	t.Parallel()

	var p models.GameIDParams
	require.ErrorIs(t, ValidateAndUnmarshal(nil, &p), ErrMissingParams)
	require.ErrorIs(t, ValidateAndUnmarshal(json.RawMessage(`{"game_id":`), &p), ErrInvalidParams)
	assert.True(t, IsValidationError(ErrMissingParams))
	assert.False(t, IsValidationError(assert.AnError))
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	var p models.UpdateSettingsParams
	require.NoError(t, ValidateAndUnmarshal(json.RawMessage(`{"debug_logging":true}`), &p))
	assert.Nil(t, p.ManualPaths)
	require.NotNil(t, p.DebugLogging)
	assert.True(t, *p.DebugLogging)

	err := ValidateAndUnmarshal(json.RawMessage(`{"manual_paths":["/mnt/games","relative"]}`), &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean absolute path")
}
