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

package fixtures

import (
	"archive/zip"
	"bytes"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// CreamRelease is the content of a CreamLinux release archive.
var CreamRelease = map[string]string{
	"creamlinux/cream.sh":           "#!/bin/sh\nexec \"$@\"\n",
	"creamlinux/lib32Creamlinux.so": "\x7fELF32",
	"creamlinux/lib64Creamlinux.so": "\x7fELF64",
	"creamlinux/cream_api.ini":      "APPID = 000\n[config]\nissubscribedapp_on_false_use_real = true\n[dlc]\n",
	"README.md":                     "creamlinux\n",
}

// SmokeRelease is the content of a SmokeAPI release archive.
var SmokeRelease = map[string]string{
	"SmokeAPI32.dll":  "smoke32",
	"SmokeAPI64.dll":  "smoke64",
	"README.md":       "SmokeAPI\n",
	"linux/smoke.so":  "not used",
	"SmokeAPI.schema": "{}",
}

// ZipBytes builds a zip archive of files keyed by entry name.
func ZipBytes(t testing.TB, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteZip writes a zip archive of files to path on fs.
func WriteZip(t testing.TB, fs afero.Fs, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, afero.WriteFile(fs, path, ZipBytes(t, files), 0o600))
}
