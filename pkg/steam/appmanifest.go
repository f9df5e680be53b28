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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var errInvalidAppManifest = errors.New("invalid app manifest")

// AppInfo contains metadata for a Steam app from its manifest.
type AppInfo struct {
	AppID      string
	Name       string
	InstallDir string
	SteamApps  string
}

// InstallPath returns steamapps/common/<installdir>.
func (a AppInfo) InstallPath() string {
	return filepath.Join(a.SteamApps, "common", a.InstallDir)
}

// Steam runtimes, Proton builds and redistributables show up as apps but
// are not games.
var skippedAppIDs = []string{
	"228980",  // Steamworks Common Redistributables
	"1070560", // Steam Linux Runtime
	"1391110", // Steam Linux Runtime - Soldier
	"1628350", // Steam Linux Runtime - Sniper
	"1493710", // Proton Experimental
	"2180100", // Proton Hotfix
}

var skippedNameParts = []string{
	"steam linux runtime",
	"proton",
	"steamworks common",
	"redistributable",
	"dotnet",
	"vc redist",
}

// IsToolApp reports whether an app is Steam tooling rather than a game.
func IsToolApp(info AppInfo) bool {
	if slices.Contains(skippedAppIDs, info.AppID) {
		return true
	}
	name := strings.ToLower(info.Name)
	for _, part := range skippedNameParts {
		if strings.Contains(name, part) {
			return true
		}
	}
	return false
}

// ReadAppManifest parses an appmanifest_*.acf file.
func ReadAppManifest(path string) (AppInfo, error) {
	m, err := readVDF(path)
	if err != nil {
		return AppInfo{}, err
	}

	appState, ok := vdfPath(m, "appstate")
	if !ok {
		return AppInfo{}, fmt.Errorf("%w: AppState not found in %s", errInvalidAppManifest, path)
	}

	appID, _ := appState["appid"].(string)           //nolint:revive // checked below
	name, _ := appState["name"].(string)             //nolint:revive // checked below
	installDir, _ := appState["installdir"].(string) //nolint:revive // checked below
	if appID == "" || installDir == "" {
		return AppInfo{}, fmt.Errorf("%w: missing appid or installdir in %s", errInvalidAppManifest, path)
	}
	if name == "" {
		name = "Steam Game " + appID
	}

	return AppInfo{
		AppID:      appID,
		Name:       name,
		InstallDir: installDir,
		SteamApps:  filepath.Dir(path),
	}, nil
}

// ListAppManifests returns the appmanifest files of a steamapps directory.
func ListAppManifests(steamApps string) ([]string, error) {
	entries, err := os.ReadDir(steamApps)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", steamApps, err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "appmanifest_") || !strings.HasSuffix(name, ".acf") {
			continue
		}
		paths = append(paths, filepath.Join(steamApps, name))
	}
	return paths, nil
}
