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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// SteamLibrary builds a fake Steam install on disk for tests.
type SteamLibrary struct {
	t           testing.TB
	compatTools map[string]string
	Root        string
	SteamApps   string
	folders     []string
}

// NewSteamLibrary creates an empty library in a temp directory.
func NewSteamLibrary(t testing.TB) *SteamLibrary {
	t.Helper()
	return NewSteamLibraryAt(t, t.TempDir())
}

// NewSteamLibraryAt creates an empty library rooted at root.
func NewSteamLibraryAt(t testing.TB, root string) *SteamLibrary {
	t.Helper()
	l := &SteamLibrary{
		t:           t,
		Root:        root,
		SteamApps:   filepath.Join(root, "steamapps"),
		compatTools: make(map[string]string),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(l.SteamApps, "common"), 0o750))
	return l
}

// AddGame writes an app manifest and creates the install directory with
// the given relative files. It returns the install path.
func (l *SteamLibrary) AddGame(appID, name string, files ...string) string {
	l.t.Helper()
	installDir := strings.ReplaceAll(name, " ", "")
	manifest := fmt.Sprintf(
		"\"AppState\"\n{\n\t\"appid\"\t\t%q\n\t\"name\"\t\t%q\n\t\"installdir\"\t\t%q\n}\n",
		appID, name, installDir,
	)
	l.WriteFile(filepath.Join("steamapps", "appmanifest_"+appID+".acf"), manifest)

	installPath := filepath.Join(l.SteamApps, "common", installDir)
	require.NoError(l.t, os.MkdirAll(installPath, 0o750))
	for _, f := range files {
		l.WriteFile(filepath.Join("steamapps", "common", installDir, f), "")
	}
	return installPath
}

// AddNativeGame adds a game with a Linux launcher and 64-bit runtime library.
func (l *SteamLibrary) AddNativeGame(appID, name string) string {
	l.t.Helper()
	return l.AddGame(appID, name, "game.x86_64", filepath.Join("lib", "libengine.so"))
}

// AddWindowsGame adds a game with an exe and a steam_api64.dll.
func (l *SteamLibrary) AddWindowsGame(appID, name string) string {
	l.t.Helper()
	return l.AddGame(appID, name, "Game.exe", filepath.Join("bin", "steam_api64.dll"))
}

// AddLibraryFolder lists another library path in libraryfolders.vdf.
func (l *SteamLibrary) AddLibraryFolder(path string) {
	l.t.Helper()
	l.folders = append(l.folders, path)

	var b strings.Builder
	b.WriteString("\"libraryfolders\"\n{\n")
	for i, f := range l.folders {
		fmt.Fprintf(&b, "\t\"%d\"\n\t{\n\t\t\"path\"\t\t%q\n\t}\n", i, f)
	}
	b.WriteString("}\n")
	l.WriteFile(filepath.Join("steamapps", "libraryfolders.vdf"), b.String())
}

// SetCompatTool maps an app to a compatibility tool in config/config.vdf.
func (l *SteamLibrary) SetCompatTool(appID, tool string) {
	l.t.Helper()
	l.compatTools[appID] = tool

	ids := make([]string, 0, len(l.compatTools))
	for id := range l.compatTools {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("\"InstallConfigStore\"\n{\n\t\"Software\"\n\t{\n\t\t\"Valve\"\n\t\t{\n")
	b.WriteString("\t\t\t\"Steam\"\n\t\t\t{\n\t\t\t\t\"CompatToolMapping\"\n\t\t\t\t{\n")
	for _, id := range ids {
		fmt.Fprintf(&b, "\t\t\t\t\t%q\n\t\t\t\t\t{\n\t\t\t\t\t\t\"name\"\t\t%q\n", id, l.compatTools[id])
		b.WriteString("\t\t\t\t\t\t\"config\"\t\t\"\"\n\t\t\t\t\t\t\"priority\"\t\t\"250\"\n\t\t\t\t\t}\n")
	}
	b.WriteString("\t\t\t\t}\n\t\t\t}\n\t\t}\n\t}\n}\n")
	l.WriteFile(filepath.Join("config", "config.vdf"), b.String())
}

// WriteFile writes content to a path relative to the library root.
func (l *SteamLibrary) WriteFile(rel, content string) {
	l.t.Helper()
	path := filepath.Join(l.Root, rel)
	require.NoError(l.t, os.MkdirAll(filepath.Dir(path), 0o750))
	//nolint:gosec // G306: test file permissions are fine
	require.NoError(l.t, os.WriteFile(path, []byte(content), 0o644))
}
