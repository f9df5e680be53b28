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

package helpers

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:paralleltest // InitLogging modifies the global log.Logger
func TestInitLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer

	require.NoError(t, InitLogging(dir, []io.Writer{&buf}))
	t.Cleanup(func() {
		log.Logger = log.Output(os.Stderr)
		logWriter = os.Stderr
	})

	log.Info().Str("game_id", "620").Msg("logging initialised")

	assert.Contains(t, buf.String(), `"game_id":"620"`)

	data, err := os.ReadFile(filepath.Join(dir, config.LogFile)) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Contains(t, string(data), "logging initialised")
}

//nolint:paralleltest // InitLogging modifies the global log.Logger
func TestInitLogging_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	//nolint:gosec // G306: test file
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	err := InitLogging(filepath.Join(file, "logs"), nil)
	require.Error(t, err)
}
