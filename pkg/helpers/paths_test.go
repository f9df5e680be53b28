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
	"path/filepath"
	"testing"

	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestAppDirs(t *testing.T) {
	t.Parallel()

	for _, dir := range []string{ConfigDir(), CacheDir(), DataDir()} {
		assert.True(t, filepath.IsAbs(dir), dir)
		assert.Equal(t, config.AppName, filepath.Base(dir))
	}
	assert.Equal(t, CacheDir(), filepath.Dir(PidFilePath()))
}
